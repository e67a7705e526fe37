package main

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/sentinel-dev/sentinel/internal/collab"
	"github.com/sentinel-dev/sentinel/internal/config"
	"github.com/sentinel-dev/sentinel/internal/git"
	"github.com/sentinel-dev/sentinel/internal/indexer"
	"github.com/sentinel-dev/sentinel/internal/logging"
	"github.com/sentinel-dev/sentinel/internal/render"
	"github.com/sentinel-dev/sentinel/internal/types"
	"github.com/sentinel-dev/sentinel/internal/watch"
)

func pidPath(root string) string {
	return filepath.Join(root, ".sentinel", "monitor.pid")
}

// osProcessControl delivers signals to the daemon recorded in
// monitor.pid, implementing the collab.ProcessControl contract.
type osProcessControl struct{}

var _ collab.ProcessControl = osProcessControl{}

func (osProcessControl) Stop(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(syscall.SIGTERM)
}

func monitorCmd() *cli.Command {
	return &cli.Command{
		Name:  "monitor",
		Usage: "Watch the project and re-analyze files as they change",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "daemon", Aliases: []string{"d"}, Usage: "Run detached in the background"},
			&cli.BoolFlag{Name: "stop", Usage: "Stop a running daemon"},
			&cli.BoolFlag{Name: "status", Usage: "Report whether a daemon is running"},
		},
		Action: monitorAction,
	}
}

func monitorAction(c *cli.Context) error {
	root, err := projectRoot(c)
	if err != nil {
		return userExit(err)
	}

	switch {
	case c.Bool("stop"):
		return monitorStop(root)
	case c.Bool("status"):
		return monitorStatus(root)
	case c.Bool("daemon"):
		return monitorDaemonize(root)
	default:
		return monitorForeground(c, root)
	}
}

// monitorDaemonize re-execs `sentinel monitor` detached and records the
// child's PID.
func monitorDaemonize(root string) error {
	self, err := os.Executable()
	if err != nil {
		return userExit(err)
	}

	cmd := exec.Command(self, "--root", root, "monitor")
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return userExit(err)
	}

	path := pidPath(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return userExit(err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(cmd.Process.Pid)), 0o644); err != nil {
		return userExit(err)
	}
	fmt.Printf("monitor started (pid %d)\n", cmd.Process.Pid)
	return nil
}

func readPID(root string) (int, error) {
	data, err := os.ReadFile(pidPath(root))
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func monitorStop(root string) error {
	pid, err := readPID(root)
	if err != nil {
		return cli.Exit("no monitor daemon is recorded (missing .sentinel/monitor.pid)", exitViolation)
	}
	if err := (osProcessControl{}).Stop(pid); err != nil {
		return cli.Exit(fmt.Sprintf("stop pid %d: %v", pid, err), exitViolation)
	}
	_ = os.Remove(pidPath(root))
	fmt.Printf("monitor stopped (pid %d)\n", pid)
	return nil
}

func monitorStatus(root string) error {
	pid, err := readPID(root)
	if err != nil {
		fmt.Println("monitor: not running")
		return nil
	}
	// Signal 0 probes liveness without delivering anything.
	if proc, err := os.FindProcess(pid); err == nil && proc.Signal(syscall.Signal(0)) == nil {
		fmt.Printf("monitor: running (pid %d)\n", pid)
		return nil
	}
	fmt.Printf("monitor: stale pid file (pid %d not running)\n", pid)
	return nil
}

// monitorForeground runs the watcher loop until SIGINT/SIGTERM. The
// initial whole-project index happens first so cross-file rules have a
// populated store from the start.
func monitorForeground(c *cli.Context, root string) error {
	cfg, err := config.Load(root)
	if err != nil {
		return userExit(err)
	}
	st, err := openStore(root)
	if err != nil {
		return userExit(err)
	}
	defer st.Close()

	ix := indexer.New(st, root)
	logging.Watch("building initial index for %s", root)
	if err := ix.IndexProject(c.Context, cfg); err != nil {
		return userExit(err)
	}

	eng, err := newEngine(root, cfg, st)
	if err != nil {
		return userExit(err)
	}

	w, err := watch.New(root, cfg, ix, eng)
	if err != nil {
		return userExit(err)
	}
	if provider, provErr := git.NewProvider(root); provErr == nil {
		w.PreviousContent = func(rel string) (string, bool) {
			return provider.Previous(c.Context, rel)
		}
	}
	w.OnResult = func(rel string, violations []types.Violation, err error) {
		if err != nil {
			logging.Error("monitor: %s: %v", rel, err)
			return
		}
		if len(violations) == 0 {
			return
		}
		summary := render.Summary{Checked: 1, IndexPopulated: st.IsPopulated()}
		if renderErr := render.Text(os.Stdout, violations, summary); renderErr != nil {
			logging.Error("monitor: render %s: %v", rel, renderErr)
		}
	}

	if err := w.Start(); err != nil {
		return userExit(err)
	}
	defer w.Stop()

	fmt.Printf("monitoring %s (%s)\n", root, strings.Join(cfg.FileExtensions, ", "))

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	fmt.Println("monitor shutting down")
	return nil
}
