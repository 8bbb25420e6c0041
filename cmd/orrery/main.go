// orrery - MCP tool servers for NASA and weather data, plus the gateway
// and clients that consume them.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/orrery-labs/orrery/internal/api"
	"github.com/orrery-labs/orrery/internal/client"
	"github.com/orrery-labs/orrery/internal/domain/apikey"
	"github.com/orrery-labs/orrery/internal/domain/apod"
	"github.com/orrery-labs/orrery/internal/domain/audit"
	"github.com/orrery-labs/orrery/internal/domain/tool"
	"github.com/orrery-labs/orrery/internal/gateway"
	"github.com/orrery-labs/orrery/internal/infra/config"
	"github.com/orrery-labs/orrery/internal/infra/eventbus"
	"github.com/orrery-labs/orrery/internal/infra/llm"
	"github.com/orrery-labs/orrery/internal/infra/nasa"
	"github.com/orrery-labs/orrery/internal/infra/sqlite"
	"github.com/orrery-labs/orrery/internal/infra/weather"
	mcpserver "github.com/orrery-labs/orrery/internal/mcp"
	"github.com/orrery-labs/orrery/internal/server"
	"github.com/orrery-labs/orrery/internal/version"
	pkgauth "github.com/orrery-labs/orrery/pkg/auth"
)

const defaultGatewayURL = "http://localhost:8808"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	if len(args) == 0 {
		printHelp(out)
		return 0
	}

	switch args[0] {
	case "serve":
		return cmdServe(args[1:], out)
	case "gateway":
		return cmdGateway(args[1:], out)
	case "tools":
		return cmdTools(args[1:], out)
	case "call":
		return cmdCall(args[1:], out)
	case "ask":
		return cmdAsk(args[1:], out)
	case "token":
		return cmdToken(args[1:], out)
	case "apikey":
		return cmdAPIKey(args[1:], out)
	case "version", "--version":
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	case "help", "--help", "-h":
		printHelp(out)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		printHelp(out)
		return 2
	}
}

// cmdServe runs an MCP tool server on stdio, streamable HTTP, or SSE.
func cmdServe(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	serverName := fs.String("server", "nasa", "Tool set to serve: nasa, weather, or all")
	transport := fs.String("transport", "stdio", "Transport: stdio, http, or sse")
	addr := fs.String("addr", ":8807", "Listen address for http/sse transports")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}

	db, err := openDatabase(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	defer db.Close() //nolint:errcheck

	registry := tool.NewToolRegistry()
	svcs := buildServices(cfg, db)

	switch *serverName {
	case "nasa":
		err = tool.RegisterNASATools(registry, svcs)
	case "weather":
		err = tool.RegisterWeatherTools(registry, svcs)
	case "all":
		err = tool.RegisterAllTools(registry, svcs)
	default:
		fmt.Fprintf(os.Stderr, "ERROR: unknown server %q (want nasa, weather, or all)\n", *serverName)
		return 2
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: register tools: %v\n", err)
		return 1
	}

	srv, err := mcpserver.NewServer("orrery-"+*serverName, version.Version, registry, audit.NewService(db))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *transport {
	case "stdio":
		if err := srv.RunStdio(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			return 1
		}
	case "http", "sse":
		var handler http.Handler
		if *transport == "http" {
			handler = srv.StreamableHTTPHandler()
		} else {
			handler = srv.SSEHandler()
		}
		if err := serveHTTP(ctx, *addr, handler); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			return 1
		}
	default:
		fmt.Fprintf(os.Stderr, "ERROR: unknown transport %q (want stdio, http, or sse)\n", *transport)
		return 2
	}
	return 0
}

// cmdGateway runs the HTTP gateway in front of a stdio MCP server
// subprocess.
func cmdGateway(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	addr := fs.String("addr", ":8808", "Listen address")
	command := fs.String("cmd", "orrery serve --server nasa", "Subprocess command line to spawn")
	timeout := fs.Duration("timeout", gateway.DefaultCallTimeout, "Per-call relay timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}

	db, err := openDatabase(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	defer db.Close() //nolint:errcheck
	auditSvc := audit.NewService(db)

	bus := eventbus.New()

	keySvc := apikey.NewService(db)
	keyCount, err := keySvc.Count(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	relay, err := gateway.Start(ctx, strings.Fields(*command), gateway.Options{
		CallTimeout: *timeout,
		Bus:         bus,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	defer relay.Close() //nolint:errcheck

	routerCfg := api.RouterConfig{
		Relay:    relay,
		Recorder: auditSvc,
		CallLog:  auditSvc,
		Bus:      bus,
		Version:  version.Version,
	}
	// Minting the first key is what turns REST auth on.
	if keyCount > 0 {
		routerCfg.Keys = keySvc
	}
	router := api.NewRouter(routerCfg)

	srvCfg := server.DefaultConfig()
	srvCfg.Host, srvCfg.Port = splitHostPort(*addr, srvCfg.Port)
	httpSrv := server.NewServer(router, srvCfg)

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.Start() }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			return 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	return 0
}

// cmdTools lists the tools the gateway's subprocess advertises.
func cmdTools(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("tools", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	gatewayURL := fs.String("gateway", defaultGatewayURL, "Gateway base URL")
	stdioCmd := fs.String("stdio", "", "Spawn this stdio server command instead of using the gateway")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, closeCaller, err := newToolCaller(ctx, *gatewayURL, *stdioCmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	defer closeCaller()

	tools, err := c.ListTools(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}

	for _, t := range tools {
		fmt.Fprintf(out, "%s\n    %s\n", t.Name, t.Description) //nolint:errcheck
	}
	return 0
}

// cmdCall invokes one tool by name with JSON arguments.
func cmdCall(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("call", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	gatewayURL := fs.String("gateway", defaultGatewayURL, "Gateway base URL")
	stdioCmd := fs.String("stdio", "", "Spawn this stdio server command instead of using the gateway")
	argsJSON := fs.String("args", "{}", "Tool arguments as a JSON object")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: orrery call [--gateway URL] [--args JSON] TOOL_NAME")
		return 2
	}

	if !json.Valid([]byte(*argsJSON)) {
		fmt.Fprintln(os.Stderr, "ERROR: --args must be a valid JSON object")
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	c, closeCaller, err := newToolCaller(ctx, *gatewayURL, *stdioCmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	defer closeCaller()

	res, err := c.CallTool(ctx, fs.Arg(0), json.RawMessage(*argsJSON))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	if res.IsError {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", res.Text)
		return 1
	}

	fmt.Fprintln(out, prettyJSON(res.Text)) //nolint:errcheck
	return 0
}

// cmdAsk answers a natural-language question using the configured LLM
// and the gateway's tools.
func cmdAsk(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	gatewayURL := fs.String("gateway", defaultGatewayURL, "Gateway base URL")
	stdioCmd := fs.String("stdio", "", "Spawn this stdio server command instead of using the gateway")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	question := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(question) == "" {
		fmt.Fprintln(os.Stderr, "usage: orrery ask [--gateway URL] QUESTION...")
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	router := llm.NewRouter(map[string]llm.LLMProvider{
		"ollama": llm.NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaChatModel),
	}, cfg.LLMProvider)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	provider, err := router.Route(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}

	caller, closeCaller, err := newToolCaller(ctx, *gatewayURL, *stdioCmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	defer closeCaller()

	asker := client.NewAsker(provider, caller)

	res, err := asker.Ask(ctx, question)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}

	for _, step := range res.Steps {
		fmt.Fprintf(out, "[called %s with %s]\n", step.Tool, step.Args) //nolint:errcheck
	}
	if res.UsedFallback {
		fmt.Fprintln(out, "[llm unavailable, raw tool output]") //nolint:errcheck
	}
	fmt.Fprintln(out, res.Answer) //nolint:errcheck
	return 0
}

// cmdToken mints a Bearer JWT for the gateway's REST surface.
func cmdToken(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	clientID := fs.String("client-id", "orrery-cli", "Client id to embed in the token")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if !pkgauth.SecretConfigured() {
		fmt.Fprintln(os.Stderr, "ERROR: ORRERY_JWT_SECRET is not set")
		return 1
	}

	token, err := pkgauth.GenerateToken(*clientID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, token) //nolint:errcheck
	return 0
}

// cmdAPIKey mints a gateway API key and prints it once.
func cmdAPIKey(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("apikey", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	name := fs.String("name", "", "Client name the key belongs to")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*name) == "" {
		fmt.Fprintln(os.Stderr, "usage: orrery apikey --name CLIENT_NAME")
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}

	db, err := openDatabase(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	defer db.Close() //nolint:errcheck

	key, err := apikey.NewService(db).Create(context.Background(), *name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, key) //nolint:errcheck
	return 0
}

// newToolCaller returns a caller backed by the gateway, or by a directly
// spawned stdio server when stdioCmd is non-empty.
func newToolCaller(ctx context.Context, gatewayURL, stdioCmd string) (client.ToolCaller, func(), error) {
	if stdioCmd == "" {
		return client.NewGatewayClient(gatewayURL), func() {}, nil
	}
	sc, err := client.ConnectStdio(ctx, strings.Fields(stdioCmd))
	if err != nil {
		return nil, nil, err
	}
	return sc, func() { sc.Close() }, nil //nolint:errcheck
}

// openDatabase opens the SQLite database and applies migrations.
func openDatabase(path string) (*sql.DB, error) {
	db, err := sqlite.NewDB(path)
	if err != nil {
		return nil, err
	}
	if err := sqlite.MigrateUp(db); err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}
	return db, nil
}

// buildServices wires the upstream adapters for the builtin tools.
func buildServices(cfg config.Config, db *sql.DB) tool.BuiltinServices {
	nasaClient := nasa.NewClient(cfg.NASABaseURL, cfg.NASAAPIKey)
	weatherClient := weather.NewClient(cfg.WeatherBaseURL, cfg.WeatherUserAgent)
	return tool.BuiltinServices{
		APOD:     apod.NewService(db, nasaClient),
		Rover:    nasaClient,
		NEO:      nasaClient,
		Alerts:   weatherClient,
		Forecast: weatherClient,
	}
}

// serveHTTP runs an HTTP server for the handler until ctx is done.
func serveHTTP(ctx context.Context, addr string, handler http.Handler) error {
	srvCfg := server.DefaultConfig()
	srvCfg.Host, srvCfg.Port = splitHostPort(addr, srvCfg.Port)
	httpSrv := server.NewServer(handler, srvCfg)

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.Start() }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// splitHostPort parses "host:port" or ":port" into its parts.
func splitHostPort(addr string, defaultPort int) (string, int) {
	host := "0.0.0.0"
	port := defaultPort

	i := strings.LastIndex(addr, ":")
	if i < 0 {
		if addr != "" {
			host = addr
		}
		return host, port
	}
	if h := addr[:i]; h != "" {
		host = h
	}
	var p int
	if _, err := fmt.Sscanf(addr[i+1:], "%d", &p); err == nil && p > 0 {
		port = p
	}
	return host, port
}

// prettyJSON re-indents a JSON document; non-JSON passes through.
func prettyJSON(s string) string {
	var buf any
	if err := json.Unmarshal([]byte(s), &buf); err != nil {
		return s
	}
	out, err := json.MarshalIndent(buf, "", "  ")
	if err != nil {
		return s
	}
	return string(out)
}

func printHelp(out io.Writer) {
	helpText := `orrery - MCP tool servers for NASA and weather data

Usage:
  orrery COMMAND [options]

Commands:
  serve      Run an MCP tool server (--server nasa|weather|all, --transport stdio|http|sse)
  gateway    Run the HTTP gateway in front of a stdio server subprocess
  tools      List tools via the gateway
  call       Invoke one tool by name (--args '{"key":"value"}')
  ask        Answer a natural-language question using the configured LLM
  token      Mint a Bearer JWT for the gateway's REST API
  apikey     Mint a gateway API key (--name CLIENT_NAME)
  version    Show version information

Examples:
  orrery serve --server nasa
  orrery gateway --cmd "orrery serve --server nasa" --addr :8808
  orrery tools
  orrery call get_weather_alerts --args '{"area":"TX"}'
  orrery call get_astronomy_picture_of_the_day --stdio "orrery serve --server nasa"
  orrery ask "any asteroids passing close this week?"`
	fmt.Fprintln(out, helpText) //nolint:errcheck
}
