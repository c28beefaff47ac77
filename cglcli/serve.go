package cglcli

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mazznoer/csscolorparser"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"oss.terrastruct.com/canvasglue/dispatch"
	"oss.terrastruct.com/canvasglue/lib/xbrowser"
	"oss.terrastruct.com/canvasglue/lib/xhttp"
	"oss.terrastruct.com/canvasglue/lib/xmain"
	"oss.terrastruct.com/canvasglue/wasmhost"
)

//go:embed static
var staticFS embed.FS

func serveCmd(ctx context.Context, ms *xmain.State, f flags, args []string) error {
	if len(args) != 1 {
		return xmain.UsageErrorf("serve expects exactly one module argument")
	}
	if args[0] == "-" {
		return xmain.UsageErrorf("serve watches the module so it must be a file")
	}
	if f.glue == "" {
		return xmain.UsageErrorf("serve needs --glue, the canvasglue-js build (GOOS=js GOARCH=wasm go build ./cmd/canvasglue-js)")
	}
	v, err := loadVariant(ms, f)
	if err != nil {
		return err
	}
	bg, err := parseBackground(f.background)
	if err != nil {
		return xmain.UsageErrorf("%v", err)
	}

	s, err := newServer(ctx, ms, serverOpts{
		modulePath:  ms.AbsPath(args[0]),
		gluePath:    ms.AbsPath(f.glue),
		variant:     v,
		tickMS:      f.tickMS,
		background:  bg,
		host:        f.host,
		port:        f.port,
		openBrowser: true,
	})
	if err != nil {
		return err
	}
	return s.run()
}

// parseBackground normalizes any CSS color to hex so it can be embedded in the page.
func parseBackground(s string) (string, error) {
	c, err := csscolorparser.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid --background %q: %w", s, err)
	}
	return c.HexString(), nil
}

type serverOpts struct {
	modulePath  string
	gluePath    string
	variant     *dispatch.Variant
	tickMS      int64
	background  string
	host        string
	port        string
	openBrowser bool
}

type server struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	ms *xmain.State
	serverOpts

	checkCh chan struct{}

	fw               *fsnotify.Watcher
	l                net.Listener
	staticFileServer http.Handler

	wsclientsMu sync.Mutex
	closing     bool
	wsclientsWG sync.WaitGroup
	wsclients   map[*wsclient]struct{}

	errMu sync.Mutex
	err   error

	resMu sync.Mutex
	res   *checkResult
}

// checkResult is pushed to every page whenever the module changes. Pages reload when
// Version moves on and Err is empty.
type checkResult struct {
	Version int    `json:"version"`
	Err     string `json:"err,omitempty"`
}

func newServer(ctx context.Context, ms *xmain.State, opts serverOpts) (*server, error) {
	ctx, cancel := context.WithCancel(ctx)

	s := &server{
		ctx:    ctx,
		cancel: cancel,

		ms:         ms,
		serverOpts: opts,

		checkCh:   make(chan struct{}, 1),
		wsclients: make(map[*wsclient]struct{}),
	}
	err := s.init()
	if err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

func (s *server) init() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.fw = fw
	sfs, err := fs.Sub(staticFS, "static")
	if err != nil {
		return err
	}
	s.staticFileServer = http.FileServer(http.FS(sfs))
	return s.listen()
}

func (s *server) run() error {
	defer s.close()

	s.goFunc(s.watchLoop)
	s.goFunc(s.checkLoop)
	s.goServe()

	s.wg.Wait()
	s.close()
	return s.err
}

func (s *server) close() {
	s.wsclientsMu.Lock()
	if s.closing {
		s.wsclientsMu.Unlock()
		return
	}
	s.closing = true
	s.wsclientsMu.Unlock()

	s.cancel()
	if s.fw != nil {
		err := s.fw.Close()
		s.setErr(err)
	}
	if s.l != nil {
		err := s.l.Close()
		if !errors.Is(err, net.ErrClosed) {
			s.setErr(err)
		}
	}

	s.wsclientsWG.Wait()
}

func (s *server) setErr(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	s.errMu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.errMu.Unlock()
}

func (s *server) goFunc(fn func(context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.cancel()

		err := fn(s.ctx)
		s.setErr(err)
	}()
}

// watchLoop requests a check whenever the module file settles after a burst of writes.
// Builds often replace the file so the watch is re-added after every event, and a slow
// poll catches changes whose events were lost.
func (s *server) watchLoop(ctx context.Context) error {
	lastModified, err := s.ensureAddWatch(ctx, s.modulePath)
	if err != nil {
		return err
	}
	s.ms.Log.Info.Printf("checking %v...", s.ms.HumanPath(s.modulePath))
	s.requestCheck()

	eatBurstTimer := time.NewTimer(0)
	<-eatBurstTimer.C
	pollTicker := time.NewTicker(time.Second * 10)
	defer pollTicker.Stop()

	for {
		select {
		case <-pollTicker.C:
			mt, err := s.ensureAddWatch(ctx, s.modulePath)
			if err != nil {
				return err
			}
			if !mt.Equal(lastModified) {
				lastModified = mt
				s.requestCheck()
			}
		case ev, ok := <-s.fw.Events:
			if !ok {
				return errors.New("fsnotify watcher closed")
			}
			s.ms.Log.Debug.Printf("received file system event %v", ev)
			mt, err := s.ensureAddWatch(ctx, s.modulePath)
			if err != nil {
				return err
			}
			if ev.Op == fsnotify.Chmod && mt.Equal(lastModified) {
				continue
			}
			lastModified = mt
			// Wait for the writer to finish so a half written module is never loaded.
			eatBurstTimer.Reset(time.Millisecond * 16)
		case <-eatBurstTimer.C:
			s.ms.Log.Info.Printf("detected change in %s: rechecking...", s.ms.HumanPath(s.modulePath))
			s.requestCheck()
		case err, ok := <-s.fw.Errors:
			if !ok {
				return errors.New("fsnotify watcher closed")
			}
			s.ms.Log.Error.Printf("fsnotify error: %v", err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *server) requestCheck() {
	select {
	case s.checkCh <- struct{}{}:
	default:
	}
}

func (s *server) ensureAddWatch(ctx context.Context, path string) (time.Time, error) {
	interval := time.Millisecond * 16
	tc := time.NewTimer(0)
	<-tc.C
	for {
		mt, err := s.addWatch(path)
		if err == nil {
			return mt, nil
		}
		if interval >= time.Second {
			s.ms.Log.Error.Printf("failed to watch %q: %v (retrying in %v)", s.ms.HumanPath(path), err, interval)
		}

		tc.Reset(interval)
		select {
		case <-tc.C:
			if interval < time.Second {
				interval = time.Second
			}
			if interval < time.Second*16 {
				interval *= 2
			}
		case <-ctx.Done():
			return time.Time{}, ctx.Err()
		}
	}
}

func (s *server) addWatch(path string) (time.Time, error) {
	err := s.fw.Add(path)
	if err != nil {
		return time.Time{}, err
	}
	d, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return d.ModTime(), nil
}

// checkLoop verifies every new build of the module and reports whether it can serve the
// variant. Modules are compiled but not instantiated: the page satisfies their imports.
func (s *server) checkLoop(ctx context.Context) error {
	version := 0
	for {
		select {
		case <-s.checkCh:
		case <-ctx.Done():
			return ctx.Err()
		}

		version++
		res := &checkResult{Version: version}
		err := verifyModule(ctx, s.ms, s.modulePath, s.variant)
		if err != nil {
			res.Err = err.Error()
			s.ms.Log.Error.Print(res.Err)
		}
		s.broadcast(res)

		if version == 1 && s.openBrowser {
			url := fmt.Sprintf("http://%s", s.l.Addr())
			err = xbrowser.Open(ctx, s.ms.Env, url)
			if err != nil {
				s.ms.Log.Warn.Printf("failed to open browser to %v: %v", url, err)
			}
		}
	}
}

func verifyModule(ctx context.Context, ms *xmain.State, fp string, v *dispatch.Variant) error {
	wasm, err := ms.ReadPath(fp)
	if err != nil {
		return err
	}
	err = wasmhost.Verify(ctx, wasm, wasmhost.DefaultExports.With(v.Exports), v.Required())
	if err != nil {
		return fmt.Errorf("%s cannot serve variant %s: %w", ms.HumanPath(fp), v.Name, err)
	}
	return nil
}

func (s *server) listen() error {
	l, err := net.Listen("tcp", net.JoinHostPort(s.host, s.port))
	if err != nil {
		return err
	}
	s.l = l
	s.ms.Log.Success.Printf("listening on http://%v", s.l.Addr())
	return nil
}

func (s *server) handler() http.Handler {
	m := http.NewServeMux()
	m.HandleFunc("/", s.handleRoot)
	m.Handle("/static/", http.StripPrefix("/static", s.staticFileServer))
	m.Handle("/module.wasm", xhttp.HandlerFuncAdapter{Log: s.ms.Log, Func: s.handleFile(func() string { return s.modulePath })})
	m.Handle("/glue.wasm", xhttp.HandlerFuncAdapter{Log: s.ms.Log, Func: s.handleFile(func() string { return s.gluePath })})
	m.Handle("/wasm_exec.js", xhttp.HandlerFuncAdapter{Log: s.ms.Log, Func: s.handleFile(wasmExecPath)})
	m.Handle("/watch", xhttp.HandlerFuncAdapter{Log: s.ms.Log, Func: s.handleWatch})
	return xhttp.Log(s.ms.Log, m)
}

func (s *server) goServe() {
	hs := xhttp.NewServer(s.ms.Log.Warn, s.handler())
	s.goFunc(func(ctx context.Context) error {
		return xhttp.Serve(ctx, time.Second*30, hs, s.l)
	})
}

func (s *server) handleRoot(hw http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(hw, r)
		return
	}
	variant, err := json.Marshal(s.variant)
	if err != nil {
		xhttp.JSON(s.ms.Log, hw, http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
		return
	}
	hw.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(hw, `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>%s</title>
	<link rel="stylesheet" href="/static/serve.css">
	<script>
		globalThis.canvasglueVariant = %q;
		globalThis.canvasglueTickMS = %d;
	</script>
	<script src="/wasm_exec.js"></script>
	<script src="/static/glue.js"></script>
</head>
<body style="background: %s">
	<div id="canvasglue-err" style="display: none"></div>
	<canvas id="canvas" width="800" height="600"></canvas>
</body>
</html>`, html.EscapeString(filepath.Base(s.modulePath)), variant, s.tickMS, s.background)
}

func (s *server) handleFile(path func() string) xhttp.HandlerFunc {
	return func(hw http.ResponseWriter, r *http.Request) error {
		fp := path()
		if fp == "" {
			return xhttp.Errorf(http.StatusNotFound, nil, "no file for %s", r.URL.Path)
		}
		b, err := os.ReadFile(fp)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return xhttp.Errorf(http.StatusNotFound, nil, "%s: %w", r.URL.Path, err)
			}
			return err
		}
		switch filepath.Ext(fp) {
		case ".wasm":
			hw.Header().Set("Content-Type", "application/wasm")
		case ".js":
			hw.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		}
		hw.Header().Set("Cache-Control", "no-store")
		_, err = hw.Write(b)
		return err
	}
}

// wasmExecPath locates the js/wasm support script of the Go toolchain the glue is built
// with. Go 1.24 moved it from misc/wasm to lib/wasm.
func wasmExecPath() string {
	for _, dir := range []string{"lib", "misc"} {
		fp := filepath.Join(runtime.GOROOT(), dir, "wasm", "wasm_exec.js")
		if _, err := os.Stat(fp); err == nil {
			return fp
		}
	}
	return ""
}

func (s *server) getRes() *checkResult {
	s.resMu.Lock()
	defer s.resMu.Unlock()
	return s.res
}

func (s *server) handleWatch(hw http.ResponseWriter, r *http.Request) error {
	s.wsclientsMu.Lock()
	if s.closing {
		s.wsclientsMu.Unlock()
		return xhttp.Errorf(http.StatusServiceUnavailable, "server shutting down...", "server shutting down...")
	}
	// Registered before the upgrade so close waits for the hijacked connection.
	s.wsclientsWG.Add(1)
	s.wsclientsMu.Unlock()

	c, err := websocket.Accept(hw, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		s.wsclientsWG.Done()
		return err
	}

	go func() {
		defer s.wsclientsWG.Done()
		defer c.Close(websocket.StatusInternalError, "the sky is falling")

		ctx, cancel := context.WithTimeout(s.ctx, time.Hour)
		defer cancel()

		cl := &wsclient{
			s:         s,
			resultsCh: make(chan struct{}, 1),
			c:         c,
		}

		s.wsclientsMu.Lock()
		s.wsclients[cl] = struct{}{}
		s.wsclientsMu.Unlock()
		defer func() {
			s.wsclientsMu.Lock()
			delete(s.wsclients, cl)
			s.wsclientsMu.Unlock()
		}()

		ctx = cl.c.CloseRead(ctx)
		go wsHeartbeat(ctx, cl.c)
		_ = cl.writeLoop(ctx)
	}()
	return nil
}

type wsclient struct {
	s         *server
	resultsCh chan struct{}
	c         *websocket.Conn
}

func (cl *wsclient) writeLoop(ctx context.Context) error {
	for {
		res := cl.s.getRes()
		if res != nil {
			err := cl.write(ctx, res)
			if err != nil {
				return err
			}
		}

		select {
		case <-cl.resultsCh:
		case <-ctx.Done():
			cl.c.Close(websocket.StatusGoingAway, "server shutting down...")
			return ctx.Err()
		}
	}
}

func (cl *wsclient) write(ctx context.Context, res *checkResult) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	return wsjson.Write(ctx, cl.c, res)
}

func (s *server) broadcast(res *checkResult) {
	s.resMu.Lock()
	s.res = res
	s.resMu.Unlock()

	s.wsclientsMu.Lock()
	defer s.wsclientsMu.Unlock()
	clientsSuffix := ""
	if len(s.wsclients) != 1 {
		clientsSuffix = "s"
	}
	s.ms.Log.Info.Printf("broadcasting version %d to %d client%s", res.Version, len(s.wsclients), clientsSuffix)
	for cl := range s.wsclients {
		select {
		case cl.resultsCh <- struct{}{}:
		default:
		}
	}
}

func wsHeartbeat(ctx context.Context, c *websocket.Conn) {
	defer c.Close(websocket.StatusInternalError, "the sky is falling")

	t := time.NewTimer(0)
	<-t.C
	for {
		err := c.Ping(ctx)
		if err != nil {
			return
		}

		t.Reset(time.Second * 30)
		select {
		case <-t.C:
		case <-ctx.Done():
			return
		}
	}
}
