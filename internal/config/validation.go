package config

import "fmt"

// validate 做结构性校验：配置错误立即失败，不允许半错误状态启动。
func validate(c *Config) error {
	seen := make(map[string]bool)
	for i, inst := range c.Instruments {
		if inst.ID == "" {
			return fmt.Errorf("instruments[%d] 缺少 id", i)
		}
		if inst.Bars == "" {
			return fmt.Errorf("instrument %s 缺少 bars 文件", inst.ID)
		}
		if seen[inst.ID] {
			return fmt.Errorf("instrument %s 重复声明", inst.ID)
		}
		seen[inst.ID] = true
	}
	return nil
}
