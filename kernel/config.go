package kernel

import (
	"fmt"
	"io"
	"os"

	ol "github.com/ossrs/go-oryx-lib/logger"
)

// Config is the minimal configuration a single-purpose AMF tool embeds
// directly (see cmd/amfdump's dump/encode subcommands): a log sink, with no
// reload support. Services that need SIGHUP reload embed core.Config
// instead.
type Config struct {
	Log struct {
		Tank  string `json:"tank"`  // "console" or "file"
		Level string `json:"level"` // info/trace/warn/error
		File  string `json:"file"`  // path, required when Tank is "file"
	} `json:"log"`

	logFile *os.File
}

func (c *Config) String() string {
	return fmt.Sprintf("log(tank=%v,level=%v,file=%v)", c.Log.Tank, c.Log.Level, c.Log.File)
}

// OpenLogger points go-oryx-lib's logger at this config's tank, matching
// the console-or-file choice the heavier core.Config offers its callers.
func (c *Config) OpenLogger() (err error) {
	if c.Log.Tank != "file" {
		return nil
	}
	if c.logFile, err = os.OpenFile(c.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err != nil {
		return err
	}
	var w io.Writer = c.logFile
	ol.Switch(w)
	return nil
}

// Close releases the log file opened by OpenLogger, if any.
func (c *Config) Close() error {
	if c.logFile == nil {
		return nil
	}
	return c.logFile.Close()
}
