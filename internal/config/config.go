// The MIT License (MIT)
//
// # Copyright (c) 2024 rtlspec-collector authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package config holds the collector's process-lifetime settings, populated
// from CLI flags and optionally overridden by a JSON file: "-c <path>"
// overrides whatever was passed on the command line.
package config

import (
	"encoding/json"
	"os"
)

// Config is the full set of process settings: listen port, pool size,
// file-rotation period, output root, and the ambient logging/stats knobs.
type Config struct {
	Port        int    `json:"port"`
	PoolSize    int    `json:"poolsize"`
	FileTime    int    `json:"filetime"` // seconds
	RootPath    string `json:"rootpath"`
	Log         string `json:"log"`
	StatsLog    string `json:"statslog"`
	StatsPeriod int    `json:"statsperiod"` // seconds
	Quiet       bool   `json:"quiet"`
}

// Defaults mirror the CLI surface's defaults: pool size 25, rotation period
// one hour, output root "dat/".
func Defaults() Config {
	return Config{
		PoolSize:    25,
		FileTime:    3600,
		RootPath:    "dat/",
		StatsPeriod: 60,
	}
}

// ParseJSONFile decodes path as JSON into cfg, overriding whichever fields
// are present in the file. No schema validation beyond what encoding/json
// already performs.
func ParseJSONFile(cfg *Config, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(cfg)
}
