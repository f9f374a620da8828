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

// Package cfg holds the configuration surface bound from flags and an
// optional config file, following the teacher's Config-struct-plus-
// BindFlags convention.
package cfg

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Store      StoreConfig      `yaml:"store"`
	FileSystem FileSystemConfig `yaml:"file-system"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type StoreConfig struct {
	// Path to the bbolt database file backing this mount.
	Path string `yaml:"path"`
	// NoSync disables bbolt's fsync-on-commit, trading durability for
	// throughput.
	NoSync bool `yaml:"no-sync"`
}

type FileSystemConfig struct {
	BlockSizeBytes uint64 `yaml:"block-size-bytes"`
	HashedBlocks   bool   `yaml:"hashed-blocks"`
	MaxSizeBytes   uint64 `yaml:"max-size-bytes"`
	MaxNameLen     int    `yaml:"max-name-len"`

	DirMode  string `yaml:"dir-mode"`
	FileMode string `yaml:"file-mode"`
	Uid      int    `yaml:"uid"`
	Gid      int    `yaml:"gid"`
}

type LoggingConfig struct {
	Format     string `yaml:"format"`
	Severity   string `yaml:"severity"`
	FilePath   string `yaml:"file-path"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
}

type MetricsConfig struct {
	Enable bool `yaml:"enable"`
	Port   int  `yaml:"port"`
}

func BindFlags(flagSet *pflag.FlagSet) error {
	var err error

	flagSet.StringP("store-path", "", "kvfuse.db", "Path to the bbolt database file backing this mount.")
	if err = viper.BindPFlag("store.path", flagSet.Lookup("store-path")); err != nil {
		return err
	}

	flagSet.BoolP("store-no-sync", "", false, "Disable fsync on every bbolt commit.")
	if err = viper.BindPFlag("store.no-sync", flagSet.Lookup("store-no-sync")); err != nil {
		return err
	}

	flagSet.Uint64P("block-size-bytes", "", 4096, "Block size in bytes used for content splitting.")
	if err = viper.BindPFlag("file-system.block-size-bytes", flagSet.Lookup("block-size-bytes")); err != nil {
		return err
	}

	flagSet.BoolP("hashed-blocks", "", false, "Store block content addressed by BLAKE3 digest with dedup.")
	if err = viper.BindPFlag("file-system.hashed-blocks", flagSet.Lookup("hashed-blocks")); err != nil {
		return err
	}

	flagSet.Uint64P("max-size-bytes", "", 0, "Quota for total stored bytes; 0 means unlimited.")
	if err = viper.BindPFlag("file-system.max-size-bytes", flagSet.Lookup("max-size-bytes")); err != nil {
		return err
	}

	flagSet.IntP("max-name-len", "", 255, "Maximum permitted byte length of a single path component.")
	if err = viper.BindPFlag("file-system.max-name-len", flagSet.Lookup("max-name-len")); err != nil {
		return err
	}

	flagSet.StringP("dir-mode", "", "755", "Permission bits for directories, in octal.")
	if err = viper.BindPFlag("file-system.dir-mode", flagSet.Lookup("dir-mode")); err != nil {
		return err
	}

	flagSet.StringP("file-mode", "", "644", "Permission bits for new files, in octal.")
	if err = viper.BindPFlag("file-system.file-mode", flagSet.Lookup("file-mode")); err != nil {
		return err
	}

	flagSet.IntP("uid", "", -1, "UID owner of all inodes; -1 uses the mounting user.")
	if err = viper.BindPFlag("file-system.uid", flagSet.Lookup("uid")); err != nil {
		return err
	}

	flagSet.IntP("gid", "", -1, "GID owner of all inodes; -1 uses the mounting user's primary group.")
	if err = viper.BindPFlag("file-system.gid", flagSet.Lookup("gid")); err != nil {
		return err
	}

	flagSet.StringP("log-format", "", "text", "Log encoding: text or json.")
	if err = viper.BindPFlag("logging.format", flagSet.Lookup("log-format")); err != nil {
		return err
	}

	flagSet.StringP("log-severity", "", "info", "Minimum log severity: debug, info, warn, error.")
	if err = viper.BindPFlag("logging.severity", flagSet.Lookup("log-severity")); err != nil {
		return err
	}

	flagSet.StringP("log-file", "", "", "Path to a log file; empty logs to stderr.")
	if err = viper.BindPFlag("logging.file-path", flagSet.Lookup("log-file")); err != nil {
		return err
	}

	flagSet.BoolP("metrics-enable", "", false, "Serve Prometheus metrics.")
	if err = viper.BindPFlag("metrics.enable", flagSet.Lookup("metrics-enable")); err != nil {
		return err
	}

	flagSet.IntP("metrics-port", "", 9477, "Port for the Prometheus metrics endpoint.")
	if err = viper.BindPFlag("metrics.port", flagSet.Lookup("metrics-port")); err != nil {
		return err
	}

	return nil
}
