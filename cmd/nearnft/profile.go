package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weisyn/nearnft/client/core/config"
)

// profileCmd Profile管理命令
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Profile管理",
	Long:  "管理 <config-dir>/profiles 下的配置，未保存的 testnet/mainnet/localnet 使用预置值",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出已保存的profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := profileMgr.ListProfiles()
		if err != nil {
			return err
		}
		result := make([]map[string]interface{}, 0, len(names))
		for _, name := range names {
			p, err := profileMgr.GetProfile(name)
			if err != nil {
				formatter.PrintWarning(fmt.Sprintf("跳过 %s: %v", name, err))
				continue
			}
			result = append(result, map[string]interface{}{
				"name":     name,
				"network":  p.Network.NetworkID,
				"node_url": p.Network.NodeURL,
				"contract": p.Network.ContractName,
			})
		}
		return formatter.Print(result)
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "显示生效的配置",
	Long:  "显示指定profile；不指定时显示按当前标志与环境变量合成的配置",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			p   *config.Profile
			err error
		)
		if len(args) > 0 {
			p, err = profileMgr.GetProfile(args[0])
		} else {
			p, err = loadProfile()
		}
		if err != nil {
			return err
		}
		return formatter.Print(p)
	},
}

var profileSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "把当前标志合成的配置保存为profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}
		p.Name = args[0]
		if len(globalFlags.ChangeMethods) > 0 {
			p.ChangeMethods = globalFlags.ChangeMethods
		}
		if len(globalFlags.ViewMethods) > 0 {
			p.ViewMethods = globalFlags.ViewMethods
		}
		if err := profileMgr.SaveProfile(p); err != nil {
			return err
		}
		formatter.PrintSuccess(fmt.Sprintf("已保存 profile '%s'", p.Name))
		return formatter.Print(p)
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "删除profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := profileMgr.DeleteProfile(args[0]); err != nil {
			return err
		}
		formatter.PrintSuccess(fmt.Sprintf("已删除 profile '%s'", args[0]))
		return nil
	},
}

func init() {
	profileCmd.AddCommand(profileListCmd, profileShowCmd, profileSaveCmd, profileDeleteCmd)
}
