package main

//go:generate go run gen_js_vars.go

import (
	"crypto/tls"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stephenkowalewski/stack-wars/internal/logging"
	"github.com/stephenkowalewski/stack-wars/internal/protocol"
	"github.com/stephenkowalewski/stack-wars/internal/server_flags"
)

var docroot string
var accesslog = log.New(os.Stdout, "", log.LstdFlags)
var serverlog = log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile)

var globalHeaders = server_flags.Header{
	"Cache-Control": []string{"max-age=0, no-cache, must-revalidate, proxy-revalidate"},
}
var staticContentHeaders = server_flags.Header{
	"Cache-Control": []string{"max-age=300, public"},
}
var debug bool
var printVersion bool

// These get set at build time with -ldflags
var (
	Version   = "dev"
	BuildDate = "unknown"
)

// handleGlobalheaders adds headers and calls another http.Handler
func handleGlobalheaders(staticContent bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		globalHeaders.Apply(w)
		if staticContent {
			staticContentHeaders.Apply(w)
		}
		next.ServeHTTP(w, r)
	})
}

func getCookieWrapper(r *http.Request, name string) (string, error) {
	var val string
	c, err := r.Cookie(name)
	if err == nil {
		val = strings.ReplaceAll(c.Value, "+", " ")
	}
	val, err = url.QueryUnescape(val)
	return val, err
}

func clearCookies(w http.ResponseWriter) {
	for _, name := range []string{protocol.CookiePlayerId, protocol.CookiePlayerName, protocol.CookieRoomCode} {
		w.Header().Add("Set-Cookie", name+`=; expires=Thu, 01 Jan 1970 00:00:00 GMT; path=/`)
	}
}

// route registers a handler with access logging and the global headers
func route(pattern string, staticContent bool, h http.Handler) {
	http.Handle(pattern, logging.AccessLogHandler(accesslog, handleGlobalheaders(staticContent, h)))
}

func main() {
	var listen, redirectListen, redirectTarget, redirectExclude string
	var certFile, keyFile string
	var accesslogger = server_flags.Logfile{Logger: &accesslog, Name: "stdout"}
	var serverlogger = server_flags.Logfile{Logger: &serverlog, Name: "stderr"}

	flag.StringVar(&listen, "listen", ":8080", "[ip]:port to bind to for game-related http(s) requests")
	flag.StringVar(&listen, "addr", ":8080", "alias for --listen")
	flag.StringVar(&certFile, "cert", "", "Path to PEM encoded x509 certificate file. Setting this flag enables https. If --cert is used, then --key is required.")
	flag.StringVar(&keyFile, "key", "", "Path to PEM encoded key file for use with --cert")
	flag.StringVar(&redirectListen, "http-redirect-addr", "", "[ip]:port to bind to for http to https redirects. Disabled if empty.")
	flag.StringVar(&redirectTarget, "http-redirect-target", "https://[[HOST]][[PATH]]", "Where to redirect clients to. [[HOST]] and [[PATH]] are replaced with the request Host header (no port) and URL Path, respectively.")
	flag.StringVar(&redirectExclude, "http-redirect-exclude", `^/\.well-known/acme-challenge/`, "Don't redirect paths matching this regex.")
	flag.StringVar(&docroot, "docroot", "./static", "directory to serve static assets (the browser client) from")
	flag.Var(&accesslogger, "accesslog", "log file for http requests")
	flag.Var(&serverlogger, "serverlog", "log file for server messages")
	flag.Var(&globalHeaders, "header", "Custom HTTP response header. May be specified more than once.")
	flag.Var(&staticContentHeaders, "static-header", "Custom HTTP response header for static pages. May be specified more than once. --static-header takes precedence over --header on static pages.")
	flag.BoolVar(&debug, "debug", false, "Enable extra debug logging and room deletion. Initialize a room for testing.")
	flag.BoolVar(&printVersion, "version", false, "Print version info and exit")
	flag.Parse()

	if printVersion {
		fmt.Printf("%s version %s (built %s)\n", os.Args[0], Version, BuildDate)
		os.Exit(0)
	}

	docroot = filepath.FromSlash(docroot)

	if certFile == "" && keyFile != "" {
		serverlog.Fatal("A key file was given without a certificate file. Make sure to set both --cert and --key in order to enable TLS.")
	}
	if keyFile == "" && certFile != "" {
		serverlog.Fatal("A certificate file was given without a key file. Make sure to set both --cert and --key in order to enable TLS.")
	}

	s := &http.Server{
		Addr:           listen,
		Handler:        nil,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// configure TLS
	if certFile != "" {
		cert, err := loadCertificate(certFile, keyFile)
		if err != nil {
			serverlog.Fatal("Failed to load x509 key pair: " + err.Error())
		}
		leaf := cert.current.Load().Leaf
		serverlog.Printf("Loaded certificate with CN %s, valid until %s.", leaf.Subject.CommonName, leaf.NotAfter)
		cert.reloadOnSignal(serverlog)
		s.TLSConfig = &tls.Config{GetCertificate: cert.GetCertificate}
	}

	howToPlay, err := renderMarkdownPage(howToPlayMarkdown)
	if err != nil {
		serverlog.Fatal("Failed to render how_to_play.md: " + err.Error())
	}

	// start page
	route("/{$}", true, markdownPageHandler(howToPlay))

	// rooms
	route("POST /api/rooms", false, http.HandlerFunc(createRoomHandler))
	route("GET /api/rooms/{code}", false, http.HandlerFunc(roomInfoHandler))
	route("POST /api/rooms/{code}/join", false, http.HandlerFunc(joinRoomHandler))
	route("/room/leave", false, http.HandlerFunc(roomLeaveHandler))

	// game
	route("/game/ws", false, http.HandlerFunc(gameWsHandler)) // WebSocket relay
	route("GET /health", false, http.HandlerFunc(healthHandler))

	// static assets
	route("/static/", true, http.StripPrefix("/static", http.FileServer(http.Dir(docroot))))
	route("/favicon.ico", true, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(docroot, "favicon.ico"))
	}))
	route("/.well-known/", true, http.FileServer(http.Dir(docroot)))

	// default page - 404 Not Found
	route("/", true, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "404 page not found", http.StatusNotFound)
	}))

	if debug {
		addDebugEndpoints()
		createRoomWithStaticUUIDs("DEBUG2", uuid.Must(uuid.Parse("00000000-0000-0000-0002-000000000000")), 2)
		createRoomWithStaticUUIDs("DEBUG4", uuid.Must(uuid.Parse("00000000-0000-0000-0004-000000000000")), 4)
	}

	// If redirectListen is set, start a server for HTTP to HTTPS redirects.
	if redirectListen != "" {
		startRedirectServer(redirectListen, redirectTarget, redirectExclude)
	}

	go cleanUpRoomsBackgroundTask(serverlog, debug)

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		serverlog.Fatal(err)
	}
	// turns listen strings like "localhost:0" into something like "127.0.0.1:42189"
	listenAddr := ln.Addr().String()

	if certFile == "" {
		serverlog.Println("Starting HTTP server on " + listenAddr)
		serverlog.Fatal(s.Serve(ln))
	} else {
		serverlog.Println("Starting HTTPS server on " + listenAddr)
		tlsListener := tls.NewListener(ln, s.TLSConfig)
		serverlog.Fatal(s.Serve(tlsListener))
	}
}

// startRedirectServer redirects http requests to target, except for paths
// matching exclude, which are served normally
func startRedirectServer(addr, target, exclude string) {
	var excludeRegex *regexp.Regexp
	var err error
	if exclude != "" {
		excludeRegex, err = regexp.Compile(exclude)
	} else {
		excludeRegex, err = regexp.Compile(`^$no-match`)
	}
	if err != nil {
		serverlog.Fatalf("Failed to compile regex `%s`: %v", exclude, err)
	}

	redirectHandler := logging.AccessLogHandler(accesslog,
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			to := strings.ReplaceAll(target, "[[HOST]]", strings.Split(r.Host, ":")[0])
			to = strings.ReplaceAll(to, "[[PATH]]", r.URL.RequestURI())
			http.Redirect(w, r, to, http.StatusTemporaryRedirect)
		}),
	)

	redirectSrv := &http.Server{
		Addr:           addr,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		MaxHeaderBytes: 1 << 20,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if excludeRegex.MatchString(r.URL.Path) {
				http.DefaultServeMux.ServeHTTP(w, r)
				return
			}
			redirectHandler.ServeHTTP(w, r)
		}),
	}

	go func() {
		serverlog.Println("Starting HTTP redirect server on " + addr)
		if err := redirectSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverlog.Fatal(err)
		}
	}()
}
