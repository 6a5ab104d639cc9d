package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/maastricht-university/segan-eval/dsp"
)

type Service struct {
	URL string `yaml:"url" mapstructure:"url"`
}
type Services struct {
	Generator      Service `yaml:"generator" mapstructure:"generator"`
	Alignment      Service `yaml:"alignment" mapstructure:"alignment"`
	Metrics        Service `yaml:"metrics" mapstructure:"metrics"`
	TimeoutSeconds int     `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}
type Eval struct {
	Window    int      `yaml:"window" mapstructure:"window"`
	EmphCoeff float64  `yaml:"emph_coeff" mapstructure:"emph_coeff"`
	Metrics   []string `yaml:"metrics" mapstructure:"metrics"`
}
type Root struct {
	TestDir         string   `yaml:"test_dir" mapstructure:"test_dir"`
	ExpDir          string   `yaml:"exp_dir" mapstructure:"exp_dir"`
	UseGPU          int      `yaml:"use_gpu" mapstructure:"use_gpu"`
	NSaveEx         int      `yaml:"n_save_ex" mapstructure:"n_save_ex"`
	Seed            int64    `yaml:"seed" mapstructure:"seed"`
	LogLevel        string   `yaml:"log_level" mapstructure:"log_level"`
	LogFile         string   `yaml:"log_file" mapstructure:"log_file"`
	MetricsTextfile string   `yaml:"metrics_textfile" mapstructure:"metrics_textfile"`
	Services        Services `yaml:"services" mapstructure:"services"`
	Eval            Eval     `yaml:"eval" mapstructure:"eval"`
}

// DefaultMetrics are the quality metrics requested for every utterance.
var DefaultMetrics = []string{"si_sdr", "sdr", "sir", "sar", "stoi"}

// EnvPrefix prefixes every environment override, e.g. SEGAN_EVAL_SERVICES_METRICS_URL.
const EnvPrefix = "SEGAN_EVAL"

// New returns a viper instance with defaults and environment overrides set.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("test_dir", "data/wav16k/min/test")
	v.SetDefault("exp_dir", "exp/tmp")
	v.SetDefault("use_gpu", 0)
	v.SetDefault("n_save_ex", 10)
	v.SetDefault("seed", -1)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("metrics_textfile", "")
	v.SetDefault("services.generator.url", "http://localhost:8001")
	v.SetDefault("services.alignment.url", "http://localhost:8002")
	v.SetDefault("services.metrics.url", "http://localhost:8003")
	v.SetDefault("services.timeout_seconds", 60)
	v.SetDefault("eval.window", dsp.DefaultWindow)
	v.SetDefault("eval.emph_coeff", dsp.DefaultEmphCoeff)
	v.SetDefault("eval.metrics", DefaultMetrics)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional YAML file at path into v and decodes the result.
func Load(v *viper.Viper, path string) (*Root, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	var cfg Root
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Root) validate() error {
	if c.UseGPU != 0 && c.UseGPU != 1 {
		return fmt.Errorf("config: use_gpu must be 0 or 1, got %d", c.UseGPU)
	}
	if c.NSaveEx < -1 {
		return fmt.Errorf("config: n_save_ex must be >= -1, got %d", c.NSaveEx)
	}
	if c.Eval.Window <= 0 {
		return fmt.Errorf("config: eval.window must be positive, got %d", c.Eval.Window)
	}
	if c.Eval.EmphCoeff <= 0 || c.Eval.EmphCoeff >= 1 {
		return fmt.Errorf("config: eval.emph_coeff must be in (0,1), got %v", c.Eval.EmphCoeff)
	}
	if len(c.Eval.Metrics) == 0 {
		return fmt.Errorf("config: eval.metrics is empty")
	}
	return nil
}

// Device names the compute device requested from the generator service.
func (c *Root) Device() string {
	if c.UseGPU == 1 {
		return "cuda"
	}
	return "cpu"
}

func DurSeconds(n int) time.Duration { return time.Duration(n) * time.Second }
