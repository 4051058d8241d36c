package config

import "path/filepath"

// Config 是 tradereview 的主配置载体。
type Config struct {
	App         AppConfig          `toml:"app"`
	Data        DataConfig         `toml:"data"`
	Review      ReviewConfig       `toml:"review"`
	Instruments []InstrumentConfig `toml:"instruments"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// DataConfig 指定数据根目录与映射档案文件。
type DataConfig struct {
	Root        string `toml:"root"`
	ProfilePath string `toml:"profile_path"`
}

// ReviewConfig 控制查询服务的外围行为。
type ReviewConfig struct {
	AllowOrigins []string `toml:"allow_origins"`
}

// InstrumentConfig 声明一个合约：K 线产物、可选的交易产物与映射档案。
type InstrumentConfig struct {
	ID      string `toml:"id"`
	Bars    string `toml:"bars"`
	Trades  string `toml:"trades"`
	Profile string `toml:"profile"`
}

// ResolvePath 把相对路径挂到数据根目录下。
func (d DataConfig) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || d.Root == "" {
		return p
	}
	return filepath.Join(d.Root, p)
}
