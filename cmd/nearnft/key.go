package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weisyn/nearnft/client/core/config"
	"github.com/weisyn/nearnft/client/core/errs"
	"github.com/weisyn/nearnft/client/core/keystore"
)

var keyType string

// keyCmd 加密 keystore 管理
var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "加密 keystore 管理",
	Long: `管理 --keystore-dir 下按 <network>/<account>.json 存放的加密私钥。

私钥不接受命令行参数：import 从 --key-env 指定的变量、NEAR_PRIVATE_KEY 或 NEAR_SEED_PHRASE 读取，
generate 生成后直接加密落盘，只输出公钥。`,
}

var keyImportCmd = &cobra.Command{
	Use:   "import <account-id>",
	Short: "从环境变量导入私钥到 keystore",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		network, err := currentNetwork()
		if err != nil {
			return err
		}
		op, err := config.OperatorFromEnv(network, args[0], globalFlags.KeyEnv)
		if err != nil {
			return err
		}
		fks, err := openFileKeyStore()
		if err != nil {
			return err
		}
		if err := fks.SetKey(network, op.AccountID, op.Key); err != nil {
			return errs.Wrap(errs.KindConfig, "key_import", err)
		}
		formatter.PrintSuccess(fmt.Sprintf("已导入 %s/%s", network, op.AccountID))
		return formatter.Print(keyInfo(network, op.AccountID, op.Key))
	},
}

var keyGenerateCmd = &cobra.Command{
	Use:   "generate <account-id>",
	Short: "生成新密钥并加密保存",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ValidateAccountID(args[0]); err != nil {
			return err
		}
		network, err := currentNetwork()
		if err != nil {
			return err
		}
		kt, err := keystore.ParseKeyType(keyType)
		if err != nil {
			return errs.Wrap(errs.KindConfig, "key_generate", err)
		}
		kp, err := keystore.GenerateKeyPair(kt)
		if err != nil {
			return err
		}
		fks, err := openFileKeyStore()
		if err != nil {
			return err
		}
		existing, err := fks.GetKey(network, args[0])
		if err != nil {
			return errs.Wrap(errs.KindConfig, "key_generate", err)
		}
		if existing != nil {
			return errs.New(errs.KindConfig, "key_generate", "key for %s/%s already exists", network, args[0])
		}
		if err := fks.SetKey(network, args[0], kp); err != nil {
			return errs.Wrap(errs.KindConfig, "key_generate", err)
		}
		return formatter.Print(keyInfo(network, args[0], kp))
	},
}

var keyShowCmd = &cobra.Command{
	Use:   "show <account-id>",
	Short: "显示账户的公钥",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		network, err := currentNetwork()
		if err != nil {
			return err
		}
		infos, err := listKeys()
		if err != nil {
			return err
		}
		for _, info := range infos {
			if info.NetworkID == network && info.AccountID == args[0] {
				return formatter.Print(info)
			}
		}
		return errs.New(errs.KindAccountResolution, "key_show", "no key for %s on %s", args[0], network)
	},
}

var keyListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出 keystore 中的账户",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		infos, err := listKeys()
		if err != nil {
			return err
		}
		return formatter.Print(infos)
	},
}

func init() {
	keyGenerateCmd.Flags().StringVar(&keyType, "type", keystore.KeyTypeED25519.String(), "密钥类型: ed25519|secp256k1")
	keyCmd.AddCommand(keyImportCmd, keyGenerateCmd, keyShowCmd, keyListCmd)
}

func keyInfo(network, accountID string, kp keystore.KeyPair) map[string]string {
	return map[string]string{
		"network":    network,
		"account_id": accountID,
		"public_key": kp.PublicKey().String(),
	}
}

// listKeys 只读取明文字段，不需要密码
func listKeys() ([]keystore.KeyFileInfo, error) {
	dir, err := keystoreDir()
	if err != nil {
		return nil, err
	}
	infos, err := keystore.ListKeyFiles(dir)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfig, "keystore", err)
	}
	return infos, nil
}

func currentNetwork() (string, error) {
	p, err := loadProfile()
	if err != nil {
		return "", err
	}
	return p.Network.NetworkID, nil
}

func keystoreDir() (string, error) {
	p, err := loadProfile()
	if err != nil {
		return "", err
	}
	if p.KeystoreDir == "" {
		return "", errs.New(errs.KindConfig, "keystore", "--keystore-dir is required")
	}
	return p.KeystoreDir, nil
}

// openFileKeyStore 打开加密 keystore，目录不存在时创建
func openFileKeyStore() (*keystore.FileKeyStore, error) {
	dir, err := keystoreDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errs.Wrap(errs.KindConfig, "keystore", err)
	}
	password, err := keystorePassword("keystore 密码")
	if err != nil {
		return nil, err
	}
	fks, err := keystore.NewFileKeyStore(dir, password)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfig, "keystore", err)
	}
	return fks, nil
}
