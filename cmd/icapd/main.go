// Command icapd is a TCP daemon that speaks ICAP: it accepts REQMOD and
// RESPMOD connections, tokenizes credit-card data flowing out to origin
// servers, detokenizes it flowing back to clients, and rejects payloads
// that look like injection attempts along the way.
package main

import (
	"fmt"
	"log"
	"net"
	"time"

	"github.com/tokenshield/icap-core/internal/adapt"
	"github.com/tokenshield/icap-core/internal/config"
	"github.com/tokenshield/icap-core/internal/icap"
	"github.com/tokenshield/icap-core/internal/ratelimit"
	"github.com/tokenshield/icap-core/internal/validate"
	"github.com/tokenshield/icap-core/internal/vault"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("icapd: config: %v", err)
	}

	store, err := vault.Open(vault.Config{
		DSN:           cfg.DSN(),
		EncryptionKey: cfg.EncryptionKey,
	})
	if err != nil {
		log.Fatalf("icapd: vault: %v", err)
	}
	defer store.Close()

	d := &daemon{
		cfg:     cfg,
		adapt:   adapt.New(store),
		scanner: validate.New(cfg.MaxScanBytes),
		limiter: ratelimit.New(cfg.RateLimitMaxBytes, cfg.RateLimitWindow, cfg.RateLimitBlock),
	}

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			d.limiter.Cleanup()
		}
	}()

	if err := d.listenAndServe(); err != nil {
		log.Fatalf("icapd: %v", err)
	}
}

type daemon struct {
	cfg     config.Config
	adapt   *adapt.Service
	scanner *validate.Scanner
	limiter *ratelimit.Limiter
}

func (d *daemon) listenAndServe() error {
	listener, err := net.Listen("tcp", d.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", d.cfg.ListenAddr, err)
	}
	defer listener.Close()

	log.Printf("icapd listening on %s", d.cfg.ListenAddr)

	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Printf("icapd: accept: %v", err)
			continue
		}
		go d.handleConnection(conn)
	}
}

func (d *daemon) handleConnection(conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()

	if !d.limiter.Allow(remote, 1) {
		log.Printf("icapd: %s rate-limited, dropping connection", remote)
		return
	}

	parser := icap.New()
	buf := make([]byte, 64*1024)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if serveErr := d.consume(conn, remote, parser, buf[:n]); serveErr != nil {
				log.Printf("icapd: %s: %v", remote, serveErr)
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// consume feeds newly read bytes to parser and responds to every message
// it completes, looping since one Read can contain several pipelined
// ICAP transactions.
func (d *daemon) consume(conn net.Conn, remote string, parser *icap.Parser, data []byte) error {
	for {
		msg, err := parser.Push(data)
		data = nil // only the first Push in this loop carries new bytes
		if err != nil {
			writeErrorResponse(conn, 400, "Bad Request")
			return err
		}
		if msg == nil {
			return nil
		}
		d.respond(conn, remote, msg)
	}
}

// respond dispatches on the ICAP method, not on which encapsulated sections
// happen to be present: a RESPMOD transaction carries both a req-hdr and a
// res-hdr/res-body, which classifies the same
// EncRequestResponse kind a REQMOD-with-response-preview transaction would,
// so keying off Encapsulated.Kind can't tell "tokenize the outbound request"
// from "detokenize the inbound response" apart.
func (d *daemon) respond(conn net.Conn, remote string, msg *icap.Message) {
	switch msg.Method {
	case icap.Options:
		writeOptionsResponse(conn)
		return

	case icap.ReqMod:
		body := msg.Encapsulated.ReqBody
		if !d.limiter.Allow(remote, len(body)+1) {
			log.Printf("icapd: %s rate-limited, rejecting transaction", remote)
			writeErrorResponse(conn, 503, "Service Unavailable")
			return
		}
		if findings := d.scanner.ScanSection("req-body", body); len(findings) > 0 {
			log.Printf("icapd: rejecting request: %+v", findings[0])
			writeErrorResponse(conn, 403, "Forbidden")
			return
		}
		result := d.adapt.Tokenize(body)
		writeAdaptedResponse(conn, result, "req-body")
		return

	case icap.RespMod:
		body := msg.Encapsulated.ResBody
		if !d.limiter.Allow(remote, len(body)+1) {
			log.Printf("icapd: %s rate-limited, rejecting transaction", remote)
			writeErrorResponse(conn, 503, "Service Unavailable")
			return
		}
		if findings := d.scanner.ScanSection("res-body", body); len(findings) > 0 {
			log.Printf("icapd: rejecting response: %+v", findings[0])
			writeErrorResponse(conn, 403, "Forbidden")
			return
		}
		result := d.adapt.Detokenize(body)
		writeAdaptedResponse(conn, result, "res-body")
		return

	default:
		writeNoContentResponse(conn)
	}
}

func writeOptionsResponse(conn net.Conn) {
	fmt.Fprint(conn, "ICAP/1.0 200 OK\r\n"+
		"Methods: REQMOD, RESPMOD\r\n"+
		"Service: icap-core tokenization service\r\n"+
		"ISTag: icap-core-1\r\n"+
		"Encapsulated: null-body=0\r\n"+
		"Max-Connections: 100\r\n"+
		"Preview: 0\r\n"+
		"Transfer-Preview: *\r\n"+
		"\r\n")
}

func writeNoContentResponse(conn net.Conn) {
	fmt.Fprint(conn, "ICAP/1.0 204 No Content\r\n"+
		"ISTag: icap-core-1\r\n"+
		"\r\n")
}

func writeAdaptedResponse(conn net.Conn, result adapt.Result, section string) {
	if !result.Modified {
		writeNoContentResponse(conn)
		return
	}

	fmt.Fprintf(conn, "ICAP/1.0 200 OK\r\n"+
		"ISTag: icap-core-1\r\n"+
		"Encapsulated: %s=0\r\n"+
		"\r\n", section)
	fmt.Fprintf(conn, "%x\r\n", len(result.Body))
	conn.Write(result.Body)
	fmt.Fprint(conn, "\r\n0\r\n\r\n")
}

func writeErrorResponse(conn net.Conn, status int, reason string) {
	fmt.Fprintf(conn, "ICAP/1.0 %d %s\r\n"+
		"ISTag: icap-core-1\r\n"+
		"\r\n", status, reason)
}
