// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package configs

import (
	"fmt"
	"time"
)

type RedisConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	MaxActive int    `mapstructure:"max_active"`
}

// Enabled reports whether a redis host has been configured.
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type DatabaseAuth struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// DatabaseConfig describes the session history database. Driver is either
// "postgres" or "sqlite"; for sqlite DBName is the file path (":memory:" allowed).
type DatabaseConfig struct {
	Driver             string       `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	Host               string       `mapstructure:"host"`
	Port               int          `mapstructure:"port"`
	DBName             string       `mapstructure:"db_name" validate:"required"`
	Auth               DatabaseAuth `mapstructure:"auth"`
	MaxOpenConnection  int          `mapstructure:"max_open_connection"`
	MaxIdealConnection int          `mapstructure:"max_ideal_connection"`
	SslMode            string       `mapstructure:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.DBName
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.Auth.User, d.Auth.Password, d.DBName, d.SslMode)
}

// UploadConfig describes the analysis endpoint recordings are submitted to.
type UploadConfig struct {
	URL         string        `mapstructure:"url" validate:"required,url"`
	FieldName   string        `mapstructure:"field_name" validate:"required,oneof=file audios"`
	AuthToken   string        `mapstructure:"auth_token"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"required"`
	ResultPaths []string      `mapstructure:"result_paths"`
}

// CaptureConfig holds the recording session defaults applied to every device.
type CaptureConfig struct {
	Devices         []string      `mapstructure:"devices" validate:"required,min=1"`
	Mode            string        `mapstructure:"mode" validate:"required,oneof=single multi"`
	IndexField      string        `mapstructure:"index_field"`
	MaxDuration     time.Duration `mapstructure:"max_duration" validate:"gte=0"`
	MaxPayloadBytes int           `mapstructure:"max_payload_bytes" validate:"gte=0"`
	ChunkInterval   time.Duration `mapstructure:"chunk_interval" validate:"required"`
	EventBuffer     int           `mapstructure:"event_buffer" validate:"gt=0"`
	DownloadDir     string        `mapstructure:"download_dir" validate:"required"`
	BaseName        string        `mapstructure:"base_name" validate:"required"`
	LeaseTTL        time.Duration `mapstructure:"lease_ttl" validate:"required,gtfield=MaxDuration"`
	ResultTTL       time.Duration `mapstructure:"result_ttl" validate:"required"`
}
