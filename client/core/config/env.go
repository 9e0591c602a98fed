package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/weisyn/nearnft/client/core/errs"
	"github.com/weisyn/nearnft/client/core/keystore"
)

// Operator 通过环境变量提供的签名账户
type Operator struct {
	AccountID string
	Key       keystore.KeyPair
	Network   string
}

var dotenvLoadOnce sync.Once

// LoadDotEnv 从当前目录向上查找 .env 并加载一次，已存在的变量不覆盖
func LoadDotEnv() {
	dotenvLoadOnce.Do(func() {
		cwd, err := os.Getwd()
		if err != nil {
			return
		}
		current := cwd
		for {
			candidate := filepath.Join(current, ".env")
			if _, statErr := os.Stat(candidate); statErr == nil {
				loadDotEnvFile(candidate)
				return
			}
			parent := filepath.Dir(current)
			if parent == current {
				return
			}
			current = parent
		}
	})
}

// OperatorFromEnv 读取签名账户与私钥
//
// 变量：NEAR_ACCOUNT_ID、NEAR_PRIVATE_KEY，网络专用的 TESTNET_/MAINNET_ 前缀版本优先。
// 没有私钥时读取 NEAR_SEED_PHRASE（可选 NEAR_SEED_PHRASE_PATH）派生密钥。
// keyEnv 非空时私钥只从该变量读取。私钥没有默认值，缺失即报 ConfigError。
func OperatorFromEnv(network, accountID, keyEnv string) (Operator, error) {
	normalized, err := NormalizeNetwork(firstNonEmpty(network, os.Getenv("NEAR_NETWORK")))
	if err != nil {
		return Operator{}, err
	}
	prefix := strings.ToUpper(normalized) + "_"

	if accountID == "" {
		accountID = firstNonEmptyEnv(prefix+"NEAR_ACCOUNT_ID", "NEAR_ACCOUNT_ID")
	}
	if accountID == "" {
		return Operator{}, errs.New(errs.KindConfig, "operator_from_env", "NEAR_ACCOUNT_ID is required")
	}

	var rawKey, source string
	if keyEnv != "" {
		rawKey, source = strings.TrimSpace(os.Getenv(keyEnv)), keyEnv
	} else {
		for _, k := range []string{prefix + "NEAR_PRIVATE_KEY", "NEAR_PRIVATE_KEY"} {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				rawKey, source = v, k
				break
			}
		}
	}
	if rawKey == "" && keyEnv == "" {
		if phrase, phraseSource := firstEnv(prefix+"NEAR_SEED_PHRASE", "NEAR_SEED_PHRASE"); phrase != "" {
			key, err := keystore.KeyPairFromSeedPhrase(phrase, os.Getenv("NEAR_SEED_PHRASE_PATH"))
			if err != nil {
				return Operator{}, errs.New(errs.KindConfig, "operator_from_env", "%s does not hold a valid seed phrase: %v", phraseSource, err)
			}
			return Operator{AccountID: accountID, Key: key, Network: normalized}, nil
		}
	}
	if rawKey == "" {
		name := keyEnv
		if name == "" {
			name = "NEAR_PRIVATE_KEY"
		}
		return Operator{}, errs.New(errs.KindConfig, "operator_from_env", "%s is required", name)
	}

	key, err := keystore.ParseKeyPair(rawKey)
	if err != nil {
		// 不回显变量内容
		return Operator{}, errs.New(errs.KindConfig, "operator_from_env", "%s does not hold a valid key: %v", source, err)
	}

	return Operator{AccountID: accountID, Key: key, Network: normalized}, nil
}

// ApplyEnv 用 NEAR_NODE_URL、NEAR_CONTRACT_ID 覆盖配置
func ApplyEnv(cfg NetworkConfig) NetworkConfig {
	if v := firstNonEmptyEnv("NEAR_NODE_URL"); v != "" {
		cfg.NodeURL = v
	}
	if v := firstNonEmptyEnv("NEAR_CONTRACT_ID"); v != "" {
		cfg.ContractName = v
	}
	return cfg
}

func loadDotEnvFile(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	loadedAny := false
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || !isValidEnvKey(key) {
			continue
		}
		if _, alreadySet := os.LookupEnv(key); alreadySet {
			continue
		}

		value = strings.TrimSpace(value)
		if len(value) >= 2 {
			first, last := value[0], value[len(value)-1]
			if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
				value = value[1 : len(value)-1]
			}
		}
		if os.Setenv(key, value) == nil {
			loadedAny = true
		}
	}
	return loadedAny
}

func isValidEnvKey(key string) bool {
	if key == "" {
		return false
	}
	for i, c := range key {
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '_' || (i > 0 && c >= '0' && c <= '9') {
			continue
		}
		return false
	}
	return true
}

func firstNonEmptyEnv(keys ...string) string {
	v, _ := firstEnv(keys...)
	return v
}

// firstEnv 返回第一个非空变量的值与变量名
func firstEnv(keys ...string) (string, string) {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v, key
		}
	}
	return "", ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
