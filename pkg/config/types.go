package config

import "github.com/GoSim-25-26J-441/lkh-solver/pkg/lkh"

// Config is the configuration shared by lkhsolve and lkhd.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // text or json
	Solver    Solver `yaml:"solver"`
	Server    Server `yaml:"server"`
	// Precision is the number of decimal digits kept when graph weights are
	// quantized into a problem file.
	Precision  int            `yaml:"precision"`
	Parameters lkh.Parameters `yaml:"parameters"`
}

// Solver locates the external binary and its working area.
type Solver struct {
	Executable string `yaml:"executable"`
	WorkDir    string `yaml:"work_dir"`
	// MaxConcurrent bounds the solver processes lkhd runs at once.
	MaxConcurrent int `yaml:"max_concurrent"`
	// KeepRunDirs leaves lkhd's per-run directories on disk after a run ends.
	KeepRunDirs bool `yaml:"keep_run_dirs"`
}

// Server holds the lkhd listen addresses.
type Server struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`
}

// Default returns the configuration used for keys absent from a file.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Solver: Solver{
			Executable:    "LKH",
			WorkDir:       lkh.DefaultWorkDir(),
			MaxConcurrent: 1,
		},
		Server: Server{
			HTTPAddr: ":8080",
			GRPCAddr: ":50051",
		},
		Precision:  2,
		Parameters: lkh.DefaultParameters(),
	}
}
