/*
The MIT License (MIT)

Copyright (c) 2013-2015 Oryx(ossrs)

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

/*
 amfdump is the command-line entrance for the AMF codec: dump a .amf file
 to JSON, encode JSON back to .amf, or run a TCP decode server.
*/
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"os"

	"net/http"

	oa "github.com/ossrs/go-oryx-lib/asprocess"
	oh "github.com/ossrs/go-oryx-lib/http"
	ol "github.com/ossrs/go-oryx-lib/logger"
	oo "github.com/ossrs/go-oryx-lib/options"
	"github.com/ossrs/go-daemon"

	"github.com/ossrs/goamf/agent"
	"github.com/ossrs/goamf/amf"
	"github.com/ossrs/goamf/amfjson"
	"github.com/ossrs/goamf/classmap"
	"github.com/ossrs/goamf/core"
	"github.com/ossrs/goamf/kernel"
)

var signature = fmt.Sprintf("AMFDUMP/%v", kernel.Version())

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "dump":
		err = runDump(os.Args[2:])
	case "encode":
		err = runEncode(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "-v", "--version", "version":
		fmt.Println(signature)
		return
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "amfdump:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: amfdump <dump|encode|serve> [flags]")
	fmt.Fprintln(os.Stderr, "  dump   -dialect amf0|amf3 -i in.amf  -o out.json")
	fmt.Fprintln(os.Stderr, "  encode -dialect amf0|amf3 -i in.json -o out.amf")
	fmt.Fprintln(os.Stderr, "  serve  -c amfdump.json [-daemon]")
}

func parseDialect(s string) (amf3 bool, err error) {
	switch s {
	case "", "amf0":
		return false, nil
	case "amf3":
		return true, nil
	default:
		return false, fmt.Errorf("unknown -dialect %q, want amf0 or amf3", s)
	}
}

func openInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return ioutil.ReadAll(os.Stdin)
	}
	return ioutil.ReadFile(path)
}

func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// logFlags holds the -log-tank/-log-level/-log-file flags shared by the
// dump and encode subcommands, which need only kernel.Config's minimal
// non-reloading logger setup (the heavier core.Config is reserved for the
// long-running serve subcommand).
type logFlags struct {
	tank  *string
	level *string
	file  *string
}

func bindLogFlags(fs *flag.FlagSet) *logFlags {
	return &logFlags{
		tank:  fs.String("log-tank", "console", "console or file"),
		level: fs.String("log-level", "warn", "info/trace/warn/error"),
		file:  fs.String("log-file", "", "log file path, required when -log-tank=file"),
	}
}

// open builds and opens a kernel.Config from the parsed flags. The caller
// must Close() the result once done logging.
func (lf *logFlags) open() (*kernel.Config, error) {
	kc := &kernel.Config{}
	kc.Log.Tank = *lf.tank
	kc.Log.Level = *lf.level
	kc.Log.File = *lf.file
	if err := kc.OpenLogger(); err != nil {
		return nil, fmt.Errorf("open logger: %w", err)
	}
	return kc, nil
}

// runDump decodes a .amf payload and renders it as indented JSON.
func runDump(argv []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	dialect := fs.String("dialect", "amf0", "amf0 or amf3")
	in := fs.String("i", "-", "input .amf file, - for stdin")
	out := fs.String("o", "-", "output .json file, - for stdout")
	logCfg := bindLogFlags(fs)
	if err := fs.Parse(argv); err != nil {
		return err
	}

	kc, err := logCfg.open()
	if err != nil {
		return err
	}
	defer kc.Close()

	amf3, err := parseDialect(*dialect)
	if err != nil {
		return err
	}

	raw, err := openInput(*in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	var v *amf.Value
	if amf3 {
		v, err = amf.DecodeAMF3(raw, amf.NilMapper{})
	} else {
		v, err = amf.DecodeAMF0(raw, amf.NilMapper{})
	}
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	w, err := openOutput(*out)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	defer w.Close()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(amfjson.ToInterface(v))
}

// runEncode parses a JSON document (as produced by dump, or hand-written)
// and writes its AMF encoding.
func runEncode(argv []string) error {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	dialect := fs.String("dialect", "amf0", "amf0 or amf3")
	in := fs.String("i", "-", "input .json file, - for stdin")
	out := fs.String("o", "-", "output .amf file, - for stdout")
	logCfg := bindLogFlags(fs)
	if err := fs.Parse(argv); err != nil {
		return err
	}

	kc, err := logCfg.open()
	if err != nil {
		return err
	}
	defer kc.Close()

	amf3, err := parseDialect(*dialect)
	if err != nil {
		return err
	}

	raw, err := openInput(*in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	var parsed interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("parse json: %w", err)
	}

	v, err := amfjson.FromInterface(parsed)
	if err != nil {
		return fmt.Errorf("build value: %w", err)
	}

	var wire []byte
	if amf3 {
		wire, err = amf.EncodeAMF3(v, amf.NilMapper{})
	} else {
		wire, err = amf.EncodeAMF0(v, amf.NilMapper{})
	}
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	w, err := openOutput(*out)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	defer w.Close()

	_, err = w.Write(wire)
	return err
}

// runServe runs the TCP decode server: framed AMF payloads in, a JSON
// rendering of each decoded Value logged. The companion HTTP endpoint, when
// configured, serves only the version at /api/v1/version.
func runServe(argv []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	daemonize := fs.Bool("daemon", false, "fork into the background")
	dialect := fs.String("dialect", "amf0", "amf0 or amf3")
	// The remaining args (-c config.json) are parsed by oo.ParseArgv below,
	// which expects to own os.Args; strip our own flags first.
	if err := fs.Parse(argv); err != nil {
		return err
	}

	amf3, err := parseDialect(*dialect)
	if err != nil {
		return err
	}

	confFile := oo.ParseArgv("./conf/amfdump.json", kernel.Version(), signature)

	if *daemonize {
		d := new(daemon.Context)
		child, err := d.Reborn()
		if err != nil {
			return fmt.Errorf("daemonize: %w", err)
		}
		defer d.Release()
		if child != nil {
			return nil
		}
	}

	ctx := kernel.NewContext()

	mapper := classmap.NewMapper()

	dialectVal := agent.DialectAMF0
	if amf3 {
		dialectVal = agent.DialectAMF3
	}

	amfAgent := agent.NewAmf(dialectVal, mapper, func(conn net.Conn, v *amf.Value) {
		b, _ := json.Marshal(amfjson.ToInterface(v))
		ol.T(ctx, fmt.Sprintf("decoded from %v: %s", conn.RemoteAddr(), b))
	})

	svr := core.NewServer(amfAgent)
	if err := svr.ParseConfig(confFile); err != nil {
		return err
	}
	defer svr.Close()

	mapper.TranslateCase = core.GsConfig.TranslateCase

	if err := svr.PrepareLogger(); err != nil {
		return err
	}
	if err := svr.Initialize(); err != nil {
		return err
	}

	asq := make(chan bool, 1)
	oa.WatchNoExit(ctx, oa.Interval, asq)

	if api := core.GsConfig.Api; api != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/api/v1/version", func(w http.ResponseWriter, r *http.Request) {
			oh.WriteVersion(w, r, kernel.Version())
		})
		apiListener, err := net.Listen("tcp", api)
		if err != nil {
			return fmt.Errorf("listen api %v: %w", api, err)
		}
		go func() {
			defer apiListener.Close()
			if err := http.Serve(apiListener, mux); err != nil {
				ol.W(ctx, "amfdump: api server stopped, err is", err)
			}
		}()
	}

	go func() {
		<-asq
		svr.Close()
	}()

	return svr.Run()
}
