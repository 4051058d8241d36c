package config

// applyDefaults 填充未显式配置的默认值。
func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = ":8080"
	}
	for i := range c.Instruments {
		if c.Instruments[i].Profile == "" {
			c.Instruments[i].Profile = "default"
		}
		c.Instruments[i].Bars = c.Data.ResolvePath(c.Instruments[i].Bars)
		c.Instruments[i].Trades = c.Data.ResolvePath(c.Instruments[i].Trades)
	}
	c.Data.ProfilePath = c.Data.ResolvePath(c.Data.ProfilePath)
}
