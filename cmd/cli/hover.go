//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/himanishpuri/MeasureDNA/pkg/logger"
	"github.com/himanishpuri/MeasureDNA/pkg/measuredna"
)

// reloadDebounce absorbs the burst of events an editor produces on save.
const reloadDebounce = 200 * time.Millisecond

func parseMeasures(args []string) ([]int, error) {
	measures := make([]int, 0, len(args))
	for _, arg := range args {
		m, err := strconv.Atoi(arg)
		if err != nil || m < 1 {
			return nil, fmt.Errorf("invalid measure number %q", arg)
		}
		measures = append(measures, m)
	}
	return measures, nil
}

func handleHover(args []string) error {
	log := logger.GetLogger()

	if len(args) < 2 {
		fmt.Println("Usage: measureDNA hover <score_id|score_file> <measure>...")
		return errUsage
	}
	measures, err := parseMeasures(args[1:])
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return err
	}

	opts, err := options()
	if err != nil {
		return err
	}
	var provider measuredna.ScoreProvider
	if isScoreID(args[0]) {
		svc, err := createService()
		if err != nil {
			return err
		}
		defer svc.Close()
		provider = svc.Provider(args[0])
	} else {
		provider = measuredna.FileProvider(args[0])
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	session := measuredna.NewSession(opts...)
	defer session.Close()

	loaded, err := session.Load(ctx, provider, measuredna.CommandRendererFactory(printBatches))
	if err != nil {
		fmt.Printf("❌ Failed to load score: %v\n", err)
		log.Errorf("Load failed: %v", err)
		return err
	}
	fmt.Printf("🎼 Loaded %d measures (%d repeated groups)\n\n", loaded.Index.MeasureCount(), len(loaded.Index.Repeated()))

	for _, m := range measures {
		fmt.Printf("👉 enter %d\n", m)
		if err := session.PointerEnter(m); err != nil {
			log.Errorf("PointerEnter(%d) failed: %v", m, err)
		}
		if group := session.Highlighted(); len(group) == 0 {
			fmt.Println("   (no other measure matches)")
		}
		fmt.Printf("👈 leave %d\n", m)
		if err := session.PointerLeave(m); err != nil {
			log.Errorf("PointerLeave(%d) failed: %v", m, err)
		}
	}
	return nil
}

// handleWatch keeps a score loaded and reloads it whenever the file changes.
// A reload that fails keeps the previous version on screen.
func handleWatch(args []string) error {
	log := logger.GetLogger()

	positional, flagArgs := splitArgs(args)
	watchCmd := flag.NewFlagSet("watch", flag.ExitOnError)
	hold := watchCmd.Int("measure", 0, "Measure to keep hovered across reloads")
	watchCmd.Parse(flagArgs)

	if len(positional) != 1 {
		fmt.Println("Usage: measureDNA watch <score_file> [--measure <n>]")
		return errUsage
	}
	scorePath, err := filepath.Abs(positional[0])
	if err != nil {
		fmt.Printf("❌ Invalid path: %v\n", err)
		return err
	}
	opts, err := options()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := measuredna.NewSession(opts...)
	defer session.Close()

	provider := measuredna.FileProvider(scorePath)
	reload := func() {
		loaded, err := session.Load(ctx, provider, measuredna.CommandRendererFactory(printBatches))
		if err != nil {
			fmt.Printf("❌ Reload failed, keeping previous version: %v\n", err)
			log.Warnf("Reload of %s failed: %v", scorePath, err)
			return
		}
		fmt.Printf("🔄 Loaded version %d: %d measures, %d repeated groups\n",
			loaded.Generation, loaded.Index.MeasureCount(), len(loaded.Index.Repeated()))
		if *hold > 0 {
			if err := session.PointerEnter(*hold); err != nil {
				log.Errorf("PointerEnter(%d) failed: %v", *hold, err)
			}
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Printf("❌ Failed to create watcher: %v\n", err)
		log.Errorf("fsnotify: %v", err)
		return err
	}
	defer watcher.Close()

	// Watch the directory: editors often replace the file instead of writing it.
	if err := watcher.Add(filepath.Dir(scorePath)); err != nil {
		fmt.Printf("❌ Failed to watch %s: %v\n", scorePath, err)
		log.Errorf("fsnotify add: %v", err)
		return err
	}

	reload()
	fmt.Printf("👀 Watching %s (Ctrl+C to stop)\n", scorePath)

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			fmt.Println("\n👋 Stopped watching")
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != scorePath || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			log.Debugf("Change detected: %s", ev)
			debounce = time.After(reloadDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnf("Watcher error: %v", err)
		case <-debounce:
			debounce = nil
			reload()
		}
	}
}
