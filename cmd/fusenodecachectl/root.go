// Copyright 2024 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command fusenodecachectl boots the node cache's ambient and domain
// stacks against a demo mount, with no real kernel FUSE mount involved
// (spec.md §1 non-goal) -- it exists to exercise cfg, internal/logger,
// internal/metrics, and internal/node end to end.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/GoogleCloudPlatform/fusenodecache/cfg"
	"github.com/GoogleCloudPlatform/fusenodecache/internal/config"
	"github.com/GoogleCloudPlatform/fusenodecache/internal/logger"
	"github.com/GoogleCloudPlatform/fusenodecache/internal/metrics"
	"github.com/GoogleCloudPlatform/fusenodecache/internal/util"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	cfgFile       string
	bindErr       error
	configFileErr error
	unmarshalErr  error
	mountConfig   cfg.Config

	disableAutoconfig bool
)

var rootCmd = &cobra.Command{
	Use:   "fusenodecachectl",
	Short: "Run the path-indexed node cache's ambient stack against a demo mount.",
	Long: `fusenodecachectl boots the node cache's configuration, logging, and
metrics stacks, performs a small demo lookup/create sequence against an
in-process mount, and serves /metrics -- there is no real kernel FUSE mount
involved.`,
	RunE: runRoot,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "Path to a YAML config file.")
	rootCmd.PersistentFlags().BoolVar(&disableAutoconfig, "disable-autoconfig", false, "Skip machine-type based flag overrides.")
	rootCmd.PersistentFlags().String("metrics-addr", ":9100", "Address to serve /metrics on.")
	bindErr = cfg.BindFlags(rootCmd.PersistentFlags())
	if bindErr == nil {
		bindErr = viper.BindPFlag("disable-autoconfig", rootCmd.PersistentFlags().Lookup("disable-autoconfig"))
	}
}

func initConfig() {
	if cfgFile == "" {
		unmarshalErr = viper.Unmarshal(&mountConfig)
		return
	}

	resolved, err := util.GetResolvedPath(cfgFile)
	if err != nil {
		configFileErr = fmt.Errorf("resolving config file path: %w", err)
		return
	}
	viper.SetConfigFile(resolved)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		configFileErr = fmt.Errorf("reading config file: %w", err)
		return
	}
	unmarshalErr = viper.Unmarshal(&mountConfig)
}

// pflagValueSet adapts a *pflag.FlagSet plus viper's bound values to the
// isValueSet shape cfg.Optimize needs, without exporting that interface.
type pflagValueSet struct {
	flags *pflag.FlagSet
}

func (s pflagValueSet) IsSet(key string) bool       { return viper.IsSet(key) }
func (s pflagValueSet) GetString(key string) string { return viper.GetString(key) }
func (s pflagValueSet) GetBool(key string) bool     { return viper.GetBool(key) }

func runRoot(cmd *cobra.Command, _ []string) error {
	if bindErr != nil {
		return bindErr
	}
	if configFileErr != nil {
		return configFileErr
	}
	if unmarshalErr != nil {
		return unmarshalErr
	}

	if mountConfig.Logging.Format == "" {
		mountConfig.Logging = cfg.GetDefaultLoggingConfig()
	}
	if err := logger.InitLogFile(config.LogConfig{}, mountConfig.Logging); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	logger.SetLogFormat(mountConfig.Logging.Format)

	if err := cfg.Rationalize(&mountConfig); err != nil {
		return fmt.Errorf("rationalizing config: %w", err)
	}

	isSet := pflagValueSet{flags: cmd.Flags()}
	if err := cfg.Optimize(&mountConfig, isSet); err != nil {
		logger.Warnf("optimize: %v", err)
	}

	if err := cfg.ValidateConfig(&mountConfig); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	recorder := metrics.NewRecorder(nil)
	if err := metrics.RegisterOTel(metrics.DefaultMeter, recorder); err != nil {
		return fmt.Errorf("registering otel gauges: %w", err)
	}

	demo := newDemoMount(&mountConfig, recorder)
	if err := demo.run(); err != nil {
		return fmt.Errorf("demo mount: %w", err)
	}

	addr, err := cmd.Flags().GetString("metrics-addr")
	if err != nil {
		return err
	}
	logger.Infof("serving /metrics on %s", addr)
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, nil)
}

// Execute runs the root command, exiting the process with status 1 on
// failure (the teacher's cmd.Execute convention).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
