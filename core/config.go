/*
The MIT License (MIT)

Copyright (c) 2013-2015 SRS(simple-rtmp-server)

Permission is hereby granted, free of charge, to any person obtaining a copy of
this software and associated documentation files (the "Software"), to deal in
the Software without restriction, including without limitation the rights to
use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
the Software, and to permit persons to whom the Software is furnished to do so,
subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*/

package core

import (
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"os/signal"
	"syscall"

	oj "github.com/ossrs/go-oryx-lib/json"
	ol "github.com/ossrs/go-oryx-lib/logger"
)

const (
	ReloadWorkers = iota
	ReloadLog
	ReloadService
)

// ReloadHandler is implemented by anything that cares about a reload event;
// it registers itself with Config.Subscribe.
type ReloadHandler interface {
	// OnReloadGlobal is called for each scope (ReloadXXX) that changed
	// between the previous config pc and the freshly loaded cc.
	OnReloadGlobal(scope int, cc, pc *Config) error
}

// Config is the AMF service's configuration: which TCP addresses to accept
// framed AMF payloads on, how class-mapper case translation defaults, and
// the usual workers/log/gc knobs the teacher's services all share. It loads
// from JSON-with-comments (via go-oryx-lib's json package) and supports
// live reload over SIGHUP.
type Config struct {
	// Workers is the number of OS threads (GOMAXPROCS) to use.
	Workers int `json:"workers"`

	// Listens are the addresses to accept AMF connections on, in
	// kernel.TcpListeners' network://laddr form, e.g. "tcp://:1111".
	Listens []string `json:"listens"`

	// Api, if non-empty, is the laddr (host:port, no scheme) the service's
	// HTTP introspection endpoint listens on. Empty disables it.
	Api string `json:"api"`

	// TranslateCase is the default for ClassMapper.Option's
	// "translate_case" query when a service-level override isn't set
	// per connection.
	TranslateCase bool `json:"translate_case"`

	Go struct {
		GcInterval int `json:"gc_interval"` // seconds
	} `json:"go"`

	Log struct {
		Tank  string `json:"tank"`  // "console" or "file"
		Level string `json:"level"` // info/trace/warn/error
		File  string `json:"file"`
	} `json:"log"`

	conf           string
	logFile        *os.File
	reloadHandlers []ReloadHandler
}

// GsConfig is the current global config, mirroring the teacher's
// process-wide config singleton (see design note on global state: the
// class-mapper is threaded explicitly, but config stays a singleton since
// only one service listens per process).
var GsConfig = NewConfig()

func NewConfig() *Config {
	return &Config{reloadHandlers: []ReloadHandler{}}
}

func (c *Config) String() string {
	return fmt.Sprintf("workers=%v, listens=%v, api=%v, translate_case=%v, log(tank=%v,level=%v,file=%v)",
		c.Workers, c.Listens, c.Api, c.TranslateCase, c.Log.Tank, c.Log.Level, c.Log.File)
}

// Loads reads conf as JSON-with-comments and validates it.
func (c *Config) Loads(conf string) (err error) {
	c.conf = conf

	f, err := os.Open(conf)
	if err != nil {
		ol.E(nil, "open config failed, err is", err)
		return err
	}
	defer f.Close()

	r := json.NewDecoder(oj.NewJsonPlusReader(f))
	if err = r.Decode(c); err != nil {
		ol.E(nil, "decode config failed, err is", err)
		return err
	}

	return c.Validate()
}

func (c *Config) Validate() error {
	if c.Workers <= 0 || c.Workers > 64 {
		return fmt.Errorf("workers must be in (0, 64], actual is %v", c.Workers)
	}
	if len(c.Listens) == 0 {
		return fmt.Errorf("no listens")
	}
	if c.Go.GcInterval <= 0 || c.Go.GcInterval > 24*3600 {
		return fmt.Errorf("go.gc_interval must be in (0, 24*3600], actual is %v", c.Go.GcInterval)
	}
	switch c.Log.Level {
	case "info", "trace", "warn", "error":
	default:
		return fmt.Errorf("log.level must be info/trace/warn/error, actual is %v", c.Log.Level)
	}
	switch c.Log.Tank {
	case "console":
	case "file":
		if len(c.Log.File) == 0 {
			return fmt.Errorf("log.file must not be empty for file tank")
		}
	default:
		return fmt.Errorf("log.tank must be console/file, actual is %v", c.Log.Tank)
	}
	return nil
}

func (c *Config) LogToFile() bool {
	return c.Log.Tank == "file"
}

// LogTank returns dw, or ioutil.Discard when level is below the configured
// threshold — the same filtering rule the teacher's services apply so
// go-oryx-lib's logger (which always writes) can still be level-gated.
func (c *Config) LogTank(level string, dw io.Writer) io.Writer {
	order := map[string]int{"info": 0, "trace": 1, "warn": 2, "error": 3}
	if order[level] < order[c.Log.Level] {
		return ioutil.Discard
	}
	return dw
}

// OpenLogger points go-oryx-lib's logger at this config's tank.
func (c *Config) OpenLogger() (err error) {
	if !c.LogToFile() {
		return nil
	}
	if c.logFile, err = os.OpenFile(c.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err != nil {
		return err
	}
	ol.Switch(c.logFile)
	return nil
}

func (c *Config) Subscribe(h ReloadHandler) {
	for _, v := range c.reloadHandlers {
		if v == h {
			return
		}
	}
	c.reloadHandlers = append(c.reloadHandlers, h)
}

func (c *Config) Unsubscribe(h ReloadHandler) {
	for i, v := range c.reloadHandlers {
		if v == h {
			c.reloadHandlers = append(c.reloadHandlers[:i], c.reloadHandlers[i+1:]...)
			return
		}
	}
}

// ReloadWorker blocks handling SIGHUP, reloading GsConfig from its original
// file and notifying every subscribed ReloadHandler of whichever scopes
// changed. It returns only when the signal channel is closed.
func ReloadWorker() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGHUP)

	defer func() {
		if r := recover(); r != nil {
			ol.E(nil, "reload panic:", r)
		}
	}()

	ol.T(nil, "wait for reload signals: kill -1", os.Getpid())
	for sig := range signals {
		ol.T(nil, "reload by", sig)

		pc := GsConfig
		cc := NewConfig()
		cc.reloadHandlers = pc.reloadHandlers[:]
		if err := cc.Loads(pc.conf); err != nil {
			ol.E(nil, "reload config failed, err is", err)
			continue
		}
		ol.T(nil, "reload parsed fresh config ok")

		if err := doReload(cc, pc); err != nil {
			ol.E(nil, "apply reload failed, err is", err)
			continue
		}

		GsConfig = cc
		ol.T(nil, "reload config ok")
	}
}

func doReload(cc, pc *Config) (err error) {
	if cc.Workers != pc.Workers {
		for _, h := range cc.reloadHandlers {
			if err = h.OnReloadGlobal(ReloadWorkers, cc, pc); err != nil {
				return err
			}
		}
		ol.T(nil, "reload applied workers")
	}

	if cc.Log.File != pc.Log.File || cc.Log.Level != pc.Log.Level || cc.Log.Tank != pc.Log.Tank {
		for _, h := range cc.reloadHandlers {
			if err = h.OnReloadGlobal(ReloadLog, cc, pc); err != nil {
				return err
			}
		}
		ol.T(nil, "reload applied log")
	}

	if fmt.Sprint(cc.Listens) != fmt.Sprint(pc.Listens) || cc.TranslateCase != pc.TranslateCase {
		for _, h := range cc.reloadHandlers {
			if err = h.OnReloadGlobal(ReloadService, cc, pc); err != nil {
				return err
			}
		}
		ol.T(nil, "reload applied service config")
	}

	return nil
}
