package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"wxpay/config"
	"wxpay/entity"
	"wxpay/internal"
	"wxpay/services"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "wxpay",
		Short: "wxpay - mobile payment gateway client",
		Long:  `wxpay signs merchant requests for the payment gateway, validates its responses and accepts payment notifications.`,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", "config.yml", "path to config file")

	rootCmd.AddCommand(
		serveCommand(),
		signCommand(),
		prepayCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(configPath); err != nil {
		return config.FromEnv()
	}
	return config.Load(configPath)
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := internal.NewLogger("internal", false, nil)
			defer logger.Sync()

			logger.Info("using config file: " + configPath)
			conf, err := loadConfig()
			if err != nil {
				logger.Error("boot", err)
				return err
			}

			var mongo services.Database
			if conf.Mongo.Enabled {
				client, err := internal.NewMongoClient(conf)
				if err != nil {
					logger.Error("mongo client", err)
					return err
				}
				mongo = client
				logger.Info("mongo client initialized")
			}

			ttl, err := time.ParseDuration(conf.Redis.TTL)
			if err != nil {
				logger.Warn(fmt.Sprintf("redis ttl %q: %v", conf.Redis.TTL, err))
			}
			deduper, err := internal.NewDeduper(conf.Redis.Addr, conf.Redis.Password, conf.Redis.DB, ttl)
			if err != nil {
				logger.Error("redis unavailable, using in-memory dedup", err)
			}

			payments := internal.NewPayments(conf, internal.NewClient(conf))
			payments.SetLogger(internal.NewLogger("payments", conf.IsDebug, mongo))
			payments.SetDatabase(mongo)
			payments.SetDeduper(deduper)

			server := internal.NewServer(conf)
			server.SetLogger(internal.NewLogger("server", conf.IsDebug, mongo))
			server.SetPaymentsService(payments)

			err = server.Start()
			if err != nil {
				logger.Error("server start", err)
			}
			return err
		},
	}
}

func signCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sign key=value...",
		Short: "Print the signature of a parameter set",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			if err = conf.Check(); err != nil {
				return err
			}
			params := entity.Parameters{}
			for _, arg := range args {
				key, value, ok := strings.Cut(arg, "=")
				if !ok {
					return fmt.Errorf("argument %q is not key=value", arg)
				}
				params[key] = value
			}
			fmt.Fprintln(cmd.OutOrStdout(), internal.Sign(conf.MerchantConfig(), params))
			return nil
		},
	}
}

func prepayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prepay prepay_id",
		Short: "Print client SDK parameters for a prepay id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			if err = conf.Check(); err != nil {
				return err
			}
			prepay := internal.Prepay(conf.AppConfig(), conf.MerchantConfig(), args[0])
			for _, key := range prepay.Parameters().Keys() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", key, prepay.Parameters().Get(key))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "paySign=%s\n", prepay.PaySign)
			return nil
		},
	}
}
