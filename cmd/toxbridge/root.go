package main

import (
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "toxbridge",
	Short: "Runs a messaging bridge for local clients",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		initLog(viper.GetString("log-level"), viper.GetString("log"))
		if err := run(cmd.Context()); err != nil {
			jww.FATAL.Panicf("%+v", err)
		}
	},
}

// init defines the flags of every command. Each flag is bound to viper so
// it can also come from the config file or a TOXBRIDGE_ variable.
func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "",
		"Path to a YAML config file")
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	rootCmd.PersistentFlags().String("log-level", "info",
		"Log threshold: trace, debug, info, warn or error")
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentFlags().StringP("log", "l", "-",
		"Path to the log output path (- is stdout)")
	viper.BindPFlag("log", rootCmd.PersistentFlags().Lookup("log"))

	rootCmd.PersistentFlags().StringP("data-dir", "d", "./toxbridge-data",
		"Directory holding the identity and profile database")
	viper.BindPFlag("data-dir", rootCmd.PersistentFlags().Lookup("data-dir"))

	rootCmd.Flags().String("network", "p2p",
		"Network stack: p2p, or sim for an isolated in-process node")
	viper.BindPFlag("network", rootCmd.Flags().Lookup("network"))

	rootCmd.Flags().Int("p2p-port", 33445, "libp2p listen port")
	viper.BindPFlag("p2p-port", rootCmd.Flags().Lookup("p2p-port"))

	rootCmd.Flags().StringSlice("bootstrap", nil,
		"Bootstrap peer multiaddrs, /p2p/ id included")
	viper.BindPFlag("bootstrap", rootCmd.Flags().Lookup("bootstrap"))

	rootCmd.Flags().Bool("nat", true, "Enable NAT port mapping")
	viper.BindPFlag("nat", rootCmd.Flags().Lookup("nat"))

	rootCmd.Flags().Int("api-port", 8080, "HTTP port of the websocket and status endpoints")
	viper.BindPFlag("api-port", rootCmd.Flags().Lookup("api-port"))

	rootCmd.Flags().Bool("cors", true, "Allow cross origin clients")
	viper.BindPFlag("cors", rootCmd.Flags().Lookup("cors"))

	rootCmd.Flags().Float64("rate-limit", 20, "HTTP requests per second per client, 0 disables")
	viper.BindPFlag("rate-limit", rootCmd.Flags().Lookup("rate-limit"))
}

// initConfig loads .env, the config file and TOXBRIDGE_* variables
func initConfig() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		jww.WARN.Printf("Failed to load .env: %v", err)
	}

	viper.SetEnvPrefix("toxbridge")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if path := viper.GetString("config"); path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			jww.FATAL.Panicf("Failed to read config %s: %+v", path, err)
		}
	}
}

func initLog(threshold, logPath string) {
	if logPath != "-" && logPath != "" {
		jww.SetStdoutOutput(io.Discard)
		logOutput, err := os.OpenFile(logPath,
			os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			panic(err.Error())
		}
		jww.SetLogOutput(logOutput)
	}

	name := strings.ToUpper(threshold)
	level := jww.LevelInfo
	switch name {
	case "TRACE":
		level = jww.LevelTrace
	case "DEBUG":
		level = jww.LevelDebug
	case "WARN":
		level = jww.LevelWarn
	case "ERROR":
		level = jww.LevelError
	default:
		name = "INFO"
	}
	if level < jww.LevelInfo {
		jww.SetFlags(log.LstdFlags | log.Lmicroseconds)
	}
	jww.INFO.Printf("log level set to: %s", name)
	jww.SetStdoutThreshold(level)
	jww.SetLogThreshold(level)
}
