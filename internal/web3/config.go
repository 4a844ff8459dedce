package web3

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ChainDefinitions models the structure of configs/chain.yaml.
type ChainDefinitions struct {
	Chains map[string]ChainDefinition `yaml:"chains"`
}

// ChainDefinition describes a single chain endpoint definition.
type ChainDefinition struct {
	Type        string `yaml:"type"`
	ChainID     int64  `yaml:"chain_id"`
	RPCURL      string `yaml:"rpc_url"`
	WSURL       string `yaml:"ws_url"`
	Description string `yaml:"description"`
}

// LoadChainDefinitions parses the YAML file containing chain metadata.
// ${VAR} references are expanded from the environment before parsing.
func LoadChainDefinitions(path string) (ChainDefinitions, error) {
	if strings.TrimSpace(path) == "" {
		return ChainDefinitions{Chains: map[string]ChainDefinition{}}, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return ChainDefinitions{}, fmt.Errorf("读取链配置失败: %w", err)
	}
	return ParseChainDefinitions(content)
}

// ParseChainDefinitions decodes chain definitions from raw YAML.
func ParseChainDefinitions(content []byte) (ChainDefinitions, error) {
	var defs ChainDefinitions
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(content))), &defs); err != nil {
		return ChainDefinitions{}, fmt.Errorf("解析链配置失败: %w", err)
	}
	if defs.Chains == nil {
		defs.Chains = map[string]ChainDefinition{}
	}
	seen := make(map[int64]string, len(defs.Chains))
	for name, chain := range defs.Chains {
		if chain.ChainID < 0 {
			return ChainDefinitions{}, fmt.Errorf("链 %s 的 chain_id 不能为负数", name)
		}
		if chain.ChainID == 0 {
			continue
		}
		if other, ok := seen[chain.ChainID]; ok {
			return ChainDefinitions{}, fmt.Errorf("链 %s 与 %s 使用了相同的 chain_id %d", name, other, chain.ChainID)
		}
		seen[chain.ChainID] = name
	}
	return defs, nil
}
