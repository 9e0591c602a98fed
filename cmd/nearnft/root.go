package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/weisyn/nearnft/client"
	"github.com/weisyn/nearnft/client/core/config"
	"github.com/weisyn/nearnft/client/core/contract"
	"github.com/weisyn/nearnft/client/core/errs"
	"github.com/weisyn/nearnft/client/core/keystore"
	"github.com/weisyn/nearnft/client/core/output"
	"github.com/weisyn/nearnft/internal/log"
)

// GlobalFlags 全局标志
type GlobalFlags struct {
	Network        string
	Profile        string
	ProfileFile    string
	ConfigDir      string
	NodeURL        string
	Contract       string
	Account        string
	KeyEnv         string // 保存私钥的环境变量名，私钥本身从不出现在命令行
	KeystoreDir    string
	CredentialsDir string
	ChangeMethods  []string
	ViewMethods    []string
	OutputFormat   string
	Silent         bool
	FullResult     bool
	LogLevel       string
	LogFile        string
	MetricsFile    string
}

var (
	globalFlags GlobalFlags
	profileMgr  *config.ProfileManager
	formatter   *output.Formatter
	registry    *prometheus.Registry

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "nearnft",
	Short: "NEAR NFT 系列合约调用工具",
	Long: `nearnft - 以一个账户签名，调用已部署的 NFT 系列合约

签名密钥只从环境变量、加密 keystore 或 ~/.near-credentials 读取：
  NEAR_ACCOUNT_ID / NEAR_PRIVATE_KEY（TESTNET_、MAINNET_ 前缀优先）
  NEAR_SEED_PHRASE（无私钥时按 m/44'/397'/0' 派生，NEAR_SEED_PHRASE_PATH 可覆盖）
  --key-env <变量名>          指定保存私钥的环境变量
  --keystore-dir <目录>       加密 keystore，密码取 NEAR_KEYSTORE_PASSWORD 或交互输入

示例：
  nearnft view nft_tokens_for_owner '{"account_id":"viernear.testnet"}'
  nearnft call nft_mint '{"token_series_id":"1","receiver_id":"viernear.testnet"}' \
      --gas 300000000000000 --deposit 7000000000000000000000
  nearnft run --op-file mint.json`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.LoadDotEnv()

		if err := setupLogger(); err != nil {
			return err
		}

		var err error
		profileMgr, err = config.NewProfileManager(globalFlags.ConfigDir)
		if err != nil {
			return fmt.Errorf("初始化配置: %w", err)
		}

		format, err := output.ParseFormat(globalFlags.OutputFormat)
		if err != nil {
			return errs.Wrap(errs.KindConfig, "output", err)
		}
		formatter = output.NewFormatter(format, stdout)
		formatter.SetLogWriter(stderr)
		formatter.SetSilent(globalFlags.Silent)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
}

// Execute 执行根命令，返回进程退出码
func Execute(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	writeMetrics()
	if err != nil {
		if formatter != nil {
			formatter.PrintError(err)
		} else {
			fmt.Fprintf(stderr, "错误: %v\n", err)
		}
		return 1
	}
	return 0
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&globalFlags.Network, "network", "", "网络: testnet|mainnet|localnet (默认取 NEAR_NETWORK，否则 testnet)")
	pf.StringVar(&globalFlags.Profile, "profile", "", "使用 <config-dir>/profiles 下的配置")
	pf.StringVar(&globalFlags.ProfileFile, "profile-file", "", "直接读取指定的配置文件")
	pf.StringVar(&globalFlags.ConfigDir, "config-dir", "", "配置目录 (默认: ~/.nearnft)")
	pf.StringVar(&globalFlags.NodeURL, "node-url", "", "覆盖节点 RPC 地址")
	pf.StringVar(&globalFlags.Contract, "contract", "", "覆盖合约账户")
	pf.StringVar(&globalFlags.Account, "account", "", "签名账户 (默认取 NEAR_ACCOUNT_ID)")
	pf.StringVar(&globalFlags.KeyEnv, "key-env", "", "保存私钥的环境变量名")
	pf.StringVar(&globalFlags.KeystoreDir, "keystore-dir", "", "加密 keystore 目录")
	pf.StringVar(&globalFlags.CredentialsDir, "credentials-dir", "", "near-cli 凭据目录 (默认: ~/.near-credentials)")
	pf.StringSliceVar(&globalFlags.ChangeMethods, "change-method", nil, "追加声明的变更方法")
	pf.StringSliceVar(&globalFlags.ViewMethods, "view-method", nil, "追加声明的只读方法")
	pf.StringVarP(&globalFlags.OutputFormat, "output", "o", "pretty", "输出格式: json|pretty|table|text")
	pf.BoolVar(&globalFlags.Silent, "silent", false, "静默模式 (不输出结果与提示)")
	pf.BoolVar(&globalFlags.FullResult, "full-result", false, "call/view/run 输出完整结果 (含交易哈希、日志、gas)")
	pf.StringVar(&globalFlags.LogLevel, "log-level", "", "日志级别: debug|info|warn|error (默认取 NEAR_LOG_LEVEL，否则 info)")
	pf.StringVar(&globalFlags.LogFile, "log-file", "", "同时写入滚动日志文件")
	pf.StringVar(&globalFlags.MetricsFile, "metrics-file", "", "退出时以 Prometheus 文本格式写出节点调用指标")

	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(nftCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(txCmd)
	rootCmd.AddCommand(profileCmd)
}

func setupLogger() error {
	opts := log.DefaultOptions()
	opts.Level = firstNonEmpty(globalFlags.LogLevel, os.Getenv("NEAR_LOG_LEVEL"), opts.Level)
	opts.FilePath = globalFlags.LogFile
	opts.EnableStacktrace = false
	logger, err := log.New(opts)
	if err != nil {
		return errs.Wrap(errs.KindConfig, "logger", err)
	}
	log.SetLogger(logger)
	return nil
}

// writeMetrics 命令结束后写出指标文件，失败只记日志
func writeMetrics() {
	if registry == nil || globalFlags.MetricsFile == "" {
		return
	}
	if err := prometheus.WriteToTextfile(globalFlags.MetricsFile, registry); err != nil {
		log.Warnf("write metrics file %s: %v", globalFlags.MetricsFile, err)
	}
}

// loadProfile 依次取 --profile-file、--profile、--network 对应的配置，再叠加环境变量与命令行覆盖
func loadProfile() (*config.Profile, error) {
	var (
		p   *config.Profile
		err error
	)
	switch {
	case globalFlags.ProfileFile != "":
		p, err = config.LoadProfile(globalFlags.ProfileFile)
	case globalFlags.Profile != "":
		p, err = profileMgr.GetProfile(globalFlags.Profile)
	default:
		p, err = config.DefaultProfile(firstNonEmpty(globalFlags.Network, os.Getenv("NEAR_NETWORK")))
	}
	if err != nil {
		return nil, err
	}

	p.Network = config.ApplyEnv(p.Network)
	if globalFlags.NodeURL != "" {
		p.Network = p.Network.WithNodeURL(globalFlags.NodeURL)
	}
	if globalFlags.Contract != "" {
		p.Network = p.Network.WithContract(globalFlags.Contract)
	}
	if globalFlags.KeystoreDir != "" {
		p.KeystoreDir = globalFlags.KeystoreDir
	}
	if globalFlags.CredentialsDir != "" {
		p.CredentialsDir = globalFlags.CredentialsDir
	}
	return p, nil
}

// session 一次命令执行所需的客户端与签名账户
type session struct {
	client    *client.Client
	profile   *config.Profile
	accountID string
}

// newSession 创建客户端并登记签名密钥
//
// 密钥来源按优先级合并：环境变量、加密 keystore、凭据目录。
func newSession() (*session, error) {
	p, err := loadProfile()
	if err != nil {
		return nil, err
	}

	mem := keystore.NewInMemoryKeyStore()
	stores := []keystore.KeyStore{mem}
	if p.KeystoreDir != "" {
		password, err := keystorePassword("keystore 密码")
		if err != nil {
			return nil, err
		}
		fks, err := keystore.NewFileKeyStore(p.KeystoreDir, password)
		if err != nil {
			return nil, errs.Wrap(errs.KindConfig, "keystore", err)
		}
		stores = append(stores, fks)
	}
	credDir := p.CredentialsDir
	if credDir == "" {
		if dir, err := keystore.DefaultCredentialsDir(); err == nil {
			credDir = dir
		}
	}
	if credDir != "" {
		stores = append(stores, keystore.NewCredentialsKeyStore(credDir))
	}
	ks, err := keystore.NewMergeKeyStore(stores...)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfig, "keystore", err)
	}

	opts := []client.Option{
		client.WithKeyStore(ks),
		client.WithMethods(contract.Options{ChangeMethods: globalFlags.ChangeMethods, ViewMethods: globalFlags.ViewMethods}),
	}
	if globalFlags.MetricsFile != "" {
		registry = prometheus.NewRegistry()
		opts = append(opts, client.WithMetrics(registry))
	}
	c, err := client.FromProfile(p, opts...)
	if err != nil {
		return nil, err
	}

	s := &session{client: c, profile: p, accountID: globalFlags.Account}
	op, err := config.OperatorFromEnv(p.Network.NetworkID, globalFlags.Account, globalFlags.KeyEnv)
	switch {
	case err == nil:
		if err := c.RegisterOperator(op); err != nil {
			c.Close()
			return nil, err
		}
		s.accountID = op.AccountID
	case globalFlags.KeyEnv != "":
		c.Close()
		return nil, err
	default:
		log.Debugf("no signing key in environment: %v", err)
	}
	if s.accountID == "" {
		s.accountID = firstNonEmpty(
			os.Getenv(strings.ToUpper(p.Network.NetworkID)+"_NEAR_ACCOUNT_ID"),
			os.Getenv("NEAR_ACCOUNT_ID"),
		)
	}
	return s, nil
}

// signer 签名账户，只读调用缺省时使用合约账户
func (s *session) signer(readonly bool) (string, error) {
	if s.accountID != "" {
		return s.accountID, nil
	}
	if readonly {
		return s.profile.Network.ContractName, nil
	}
	return "", errs.New(errs.KindConfig, "account", "signing account is required (--account or NEAR_ACCOUNT_ID)")
}

// openContract 解析账户并绑定合约
func (s *session) openContract(ctx context.Context, readonly bool) (*contract.Contract, error) {
	accountID, err := s.signer(readonly)
	if err != nil {
		return nil, err
	}
	return s.client.Open(ctx, accountID, "")
}

// keystorePassword 优先读取 NEAR_KEYSTORE_PASSWORD，否则在终端提示输入
func keystorePassword(prompt string) (string, error) {
	if v := os.Getenv("NEAR_KEYSTORE_PASSWORD"); v != "" {
		return v, nil
	}
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		return "", errs.New(errs.KindConfig, "keystore", "NEAR_KEYSTORE_PASSWORD is not set and stdin is not a terminal")
	}
	fmt.Fprint(stderr, prompt+": ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(stderr)
	if err != nil {
		return "", fmt.Errorf("读取密码失败: %w", err)
	}
	return string(b), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
