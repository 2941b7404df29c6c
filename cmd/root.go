package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/advertile/campwatch/internal/utils"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	LOGO = `
	  ___ __ _ _ __ ___  _ ____      ____ _| |_ ___| |__
	 / __/ _. | '_ . _ \| '_ \ \ /\ / / _. | __/ __| '_ \
	| (_| (_| | | | | | | |_) \ V  V / (_| | || (__| | | |
	 \___\__,_|_| |_| |_| .__/ \_/\_/ \__,_|\__\___|_| |_|
	                    |_|

`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "campwatch",
	Short: "Health monitoring for ad campaign destinations.",
	Long: LOGO + `campwatch continuously verifies that your campaigns' tracking links,
custom domains and landing pages resolve and serve real content, and alerts
you on Telegram only when something is broken.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.campwatch.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".campwatch")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := home + "/.campwatch.yaml"
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	// Set default empty values for all keys
	viper.SetDefault("redtrack.apikey", "")
	viper.SetDefault("redtrack.apibase", "")
	viper.SetDefault("redtrack.timezone", "UTC")
	viper.SetDefault("telegram.token", "")
	viper.SetDefault("telegram.chatid", "")
	viper.SetDefault("telegram.maxmessages", 25)
	viper.SetDefault("check.timeout", 15)
	viper.SetDefault("check.retries", 2)
	viper.SetDefault("check.concurrency", 1)
	viper.SetDefault("data.dir", "./data")
	viper.SetDefault("server.username", "")
	viper.SetDefault("server.password", "")

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}
