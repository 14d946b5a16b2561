package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/Pablu23/tftp/internal/client"
	"github.com/Pablu23/tftp/internal/server"
	"github.com/Pablu23/tftp/internal/tftp"
)

const usage = `usage:
  tftpc serve   [-config file.toml]
  tftpc request [-config file.toml] <address> <filename> [mode]
  tftpc decode  <hex>
  tftpc encode  rrq|wrq <filename> <mode>
  tftpc encode  data <block> <payload>
  tftpc encode  ack <block>
  tftpc encode  error <code> <message>`

var errUsage = errors.New("invalid arguments")

func main() {
	log.SetFormatter(&log.TextFormatter{
		ForceColors: true,
	})

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = serve(os.Args[2:])
	case "request":
		err = request(os.Args[2:])
	case "decode":
		err = decode(os.Args[2:])
	case "encode":
		err = encode(os.Args[2:])
	default:
		err = errUsage
	}

	if errors.Is(err, errUsage) {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.WithError(err).Fatal(os.Args[1] + " failed")
	}
}

func configFlag(name string, args []string) (config, []string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	path := fs.String("config", "", "TOML config file")
	if err := fs.Parse(args); err != nil {
		return config{}, nil, errUsage
	}
	cfg, err := loadConfig(*path)
	if err != nil {
		return config{}, nil, err
	}
	log.SetLevel(cfg.LogLevel)
	return cfg, fs.Args(), nil
}

func serve(args []string) error {
	cfg, rest, err := configFlag("serve", args)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return errUsage
	}

	srv, err := server.New(server.NewRecorder(), cfg.serverOptions)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return srv.Serve(ctx)
}

func request(args []string) error {
	cfg, rest, err := configFlag("request", args)
	if err != nil {
		return err
	}
	if len(rest) < 2 || len(rest) > 3 {
		return errUsage
	}

	mode := tftp.ModeOctet
	if len(rest) == 3 {
		mode = rest[2]
	}
	if m, ok := tftp.NormalizeMode(mode); ok {
		mode = m
	} else {
		log.WithField("Mode", mode).Warn("Not an RFC 1350 transfer mode")
	}

	rrq, err := tftp.NewReadRequest(rest[1], mode)
	if err != nil {
		return err
	}

	c, err := client.Dial(rest[0], cfg.clientOptions)
	if err != nil {
		return err
	}
	defer func(c *client.Client) {
		err := c.Close()
		if err != nil {
			log.WithError(err).Error("Could not close connection")
		}
	}(c)

	if err := c.Send(rrq); err != nil {
		return err
	}
	reply, from, err := c.Receive(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("%s from %s\n", reply, from)
	return nil
}

func decode(args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	b, err := hex.DecodeString(strings.Join(strings.Fields(strings.Join(args, " ")), ""))
	if err != nil {
		return fmt.Errorf("parse hex: %w", err)
	}
	p, err := tftp.Decode(b)
	if err != nil {
		return err
	}
	fmt.Println(p)
	if data, ok := p.(tftp.Data); ok && len(data.Payload) > 0 {
		fmt.Print(hex.Dump(data.Payload))
	}
	return nil
}

func encode(args []string) error {
	p, err := buildPacket(args)
	if err != nil {
		return err
	}
	b, err := tftp.Encode(p)
	if err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(b))
	return nil
}

func buildPacket(args []string) (tftp.Packet, error) {
	if len(args) == 0 {
		return nil, errUsage
	}

	kind := strings.ToLower(args[0])
	switch kind {
	case "rrq", "wrq":
		if len(args) != 3 {
			return nil, errUsage
		}
		if kind == "rrq" {
			return tftp.NewReadRequest(args[1], args[2])
		}
		return tftp.NewWriteRequest(args[1], args[2])
	case "data":
		if len(args) != 3 {
			return nil, errUsage
		}
		block, err := parseUint16("block", args[1])
		if err != nil {
			return nil, err
		}
		return tftp.NewData(block, []byte(args[2]))
	case "ack":
		if len(args) != 2 {
			return nil, errUsage
		}
		block, err := parseUint16("block", args[1])
		if err != nil {
			return nil, err
		}
		return tftp.NewAck(block), nil
	case "error":
		if len(args) != 3 {
			return nil, errUsage
		}
		code, err := parseUint16("code", args[1])
		if err != nil {
			return nil, err
		}
		return tftp.NewError(tftp.ErrorCode(code), args[2])
	default:
		return nil, errUsage
	}
}

func parseUint16(name, raw string) (uint16, error) {
	v, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return uint16(v), nil
}
