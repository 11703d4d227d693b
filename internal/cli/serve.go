package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/mdns"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"github.com/agusx1211/scamsim/internal/config"
	"github.com/agusx1211/scamsim/internal/debug"
	"github.com/agusx1211/scamsim/internal/hexid"
	"github.com/agusx1211/scamsim/internal/playback"
	"github.com/agusx1211/scamsim/internal/scenario"
	"github.com/agusx1211/scamsim/internal/webserver"
)

const mdnsServiceType = "_scamsim._tcp"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web demo",
	Long: `Start an HTTP/WebSocket server with the browser player. Every browser tab
gets its own playback session.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "127.0.0.1", "Host to bind to (default from config)")
	serveCmd.Flags().Bool("expose", false, "Bind to 0.0.0.0 for LAN access (implies --mdns and a generated token)")
	serveCmd.Flags().String("auth-token", "", "Require Bearer token for API and WebSocket access")
	serveCmd.Flags().Bool("mdns", false, "Advertise server on local network via mDNS/Bonjour")
	serveCmd.Flags().Bool("qr", false, "Print a QR code of the URL")
	serveCmd.Flags().Bool("fast", false, "Collapse every playback delay to zero")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	host, port := cfg.Web.Host, cfg.Web.Port
	if cmd.Flags().Changed("host") || host == "" {
		host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") || port == 0 {
		port, _ = cmd.Flags().GetInt("port")
	}
	expose, _ := cmd.Flags().GetBool("expose")
	authToken, _ := cmd.Flags().GetString("auth-token")
	enableMDNS, _ := cmd.Flags().GetBool("mdns")
	printQR, _ := cmd.Flags().GetBool("qr")
	fast, _ := cmd.Flags().GetBool("fast")

	if expose {
		host = "0.0.0.0"
		enableMDNS = true
		if authToken == "" {
			authToken = hexid.NewN(16)
		}
	}
	pacing := cfg.Pacing()
	if fast {
		pacing = playback.Instant()
	}

	srv := webserver.New(catalog, webserver.Options{
		Host:      host,
		Port:      port,
		AuthToken: authToken,
		Pacing:    pacing,
	})
	if err := srv.Start(); err != nil {
		return fmt.Errorf("starting web server: %w", err)
	}

	url := serveURL(host, srv.Port(), authToken)
	out := cmd.OutOrStdout()
	// OSC 8 hyperlink for terminals that support it.
	fmt.Fprintf(out, "\033]8;;%s\033\\%s\033]8;;\033\\\n", url, url)
	if authToken != "" {
		fmt.Fprintf(out, "Auth token required for API access.\n")
	}
	if printQR {
		if err := printQRCode(cmd, url); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to render QR code: %v\n", err)
		}
	}

	if enableMDNS {
		server, err := startMDNSService(srv.Port(), url)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to start mDNS advertisement: %v\n", err)
		} else {
			defer server.Shutdown()
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.CatalogPath != "" {
		go watchServedCatalog(ctx, cmd, srv, cfg.CatalogPath)
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down web server: %w", err)
	}
	debug.Log("cli", "web server stopped")
	return nil
}

// watchServedCatalog hot-swaps the server's catalog whenever the file is
// saved. A broken save keeps the previous catalog.
func watchServedCatalog(ctx context.Context, cmd *cobra.Command, srv *webserver.Server, path string) {
	err := scenario.Watch(ctx, path, func(c *scenario.Catalog, err error) {
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: catalog not reloaded: %v\n", err)
			return
		}
		srv.SetCatalog(c)
		fmt.Fprintf(cmd.OutOrStdout(), "%scatalog reloaded from %s%s\n", colorDim, path, colorReset)
	})
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: not watching catalog: %v\n", err)
	}
}

// serveURL returns the address a browser should open. Wildcard binds are
// replaced with this machine's outbound LAN address.
func serveURL(host string, port int, token string) string {
	switch host {
	case "", "0.0.0.0", "::":
		host = lanAddress()
	}
	url := fmt.Sprintf("http://%s/", net.JoinHostPort(host, fmt.Sprint(port)))
	if token != "" {
		url += "?token=" + token
	}
	return url
}

func lanAddress() string {
	conn, err := net.Dial("udp", "192.0.2.1:9")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "127.0.0.1"
}

func startMDNSService(port int, url string) (*mdns.Server, error) {
	if port <= 0 {
		return nil, fmt.Errorf("invalid port for mDNS advertisement: %d", port)
	}
	name, _ := os.Hostname()
	name = strings.TrimSpace(strings.Split(name, ".")[0])
	if name == "" {
		name = "scamsim"
	}
	txtRecords := []string{
		"app=scamsim",
		fmt.Sprintf("url=%s", url),
	}
	service, err := mdns.NewMDNSService(name, mdnsServiceType, "local", "", port, nil, txtRecords)
	if err != nil {
		return nil, err
	}
	return mdns.NewServer(&mdns.Config{
		Zone: service,
	})
}

func printQRCode(cmd *cobra.Command, url string) error {
	code, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), code.ToString(false))
	return nil
}
