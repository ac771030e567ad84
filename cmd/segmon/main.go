// Package main provides segmon, an interactive terminal monitor that steps
// a stimulus suite through the segment unit one clock at a time.
//
// Keys: n or space steps, a runs to the end, r restarts, p saves a PNG map
// of the table, q or Ctrl-C quits.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jroimartin/gocui"

	"github.com/sarchlab/segsim/harness"
	"github.com/sarchlab/segsim/logging"
	"github.com/sarchlab/segsim/mapview"
	"github.com/sarchlab/segsim/mmu"
	"github.com/sarchlab/segsim/stimulus"
)

var (
	configPath = flag.String("config", "", "Path to unit configuration JSON or YAML file")
	builtin    = flag.String("builtin", "", "Name of a builtin suite to monitor")
	scriptPath = flag.String("script", "", "Path to a Lua stimulus script")
	logLevel   = flag.Int("log-level", 1, "Log verbosity shown in the log view")
	mapPath    = flag.String("map", "segmap.png", "Where the p key saves the table map")
)

func main() {
	flag.Parse()

	suite, err := loadSuite()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintf(os.Stderr, "Usage: segmon [options] [suite.yaml]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	config := mmu.DefaultConfig()
	if *configPath != "" {
		config, err = mmu.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading unit config: %v\n", err)
			os.Exit(1)
		}
	}

	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		log.Panicln(err)
	}
	defer g.Close()

	g.SetManagerFunc(layout)

	// The log view only exists after the first layout pass.
	if err := layout(g); err != nil {
		log.Panicln(err)
	}
	logView, err := g.View("log")
	if err != nil {
		log.Panicln(err)
	}

	m, err := newMonitor(suite, config, logging.New(logView, *logLevel))
	if err != nil {
		g.Close()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	mon := &ui{monitor: m}
	if err := mon.bind(g); err != nil {
		log.Panicln(err)
	}
	g.Update(mon.redraw)

	if err := g.MainLoop(); err != nil && err != gocui.ErrQuit {
		log.Panicln(err)
	}
}

func loadSuite() (*stimulus.Suite, error) {
	switch {
	case *builtin != "":
		for _, s := range harness.BuiltinSuites() {
			if s.Name == *builtin {
				return s, nil
			}
		}
		return nil, fmt.Errorf("no builtin suite named %q", *builtin)
	case *scriptPath != "":
		return stimulus.RunScriptFile(*scriptPath)
	case flag.NArg() == 1:
		return stimulus.Load(flag.Arg(0))
	}
	return nil, fmt.Errorf("no suite given")
}

type ui struct {
	monitor *monitor
}

func (u *ui) bind(g *gocui.Gui) error {
	bindings := []struct {
		key     interface{}
		handler func(*gocui.Gui, *gocui.View) error
	}{
		{gocui.KeyCtrlC, quit},
		{'q', quit},
		{'n', u.step},
		{gocui.KeySpace, u.step},
		{'a', u.runToEnd},
		{'r', u.restart},
		{'p', u.saveMap},
	}

	for _, b := range bindings {
		if err := g.SetKeybinding("", b.key, gocui.ModNone, b.handler); err != nil {
			return err
		}
	}
	return nil
}

func (u *ui) step(g *gocui.Gui, _ *gocui.View) error {
	u.monitor.step()
	return u.redraw(g)
}

func (u *ui) runToEnd(g *gocui.Gui, _ *gocui.View) error {
	u.monitor.runToEnd()
	return u.redraw(g)
}

func (u *ui) restart(g *gocui.Gui, _ *gocui.View) error {
	if err := u.monitor.restart(); err != nil {
		return err
	}
	return u.redraw(g)
}

func (u *ui) saveMap(g *gocui.Gui, _ *gocui.View) error {
	v, err := g.View("log")
	if err != nil {
		return err
	}

	if err := mapview.SavePNG(*mapPath, u.monitor.table(), mapview.DefaultOptions()); err != nil {
		fmt.Fprintf(v, "%v\n", err)
		return nil
	}
	fmt.Fprintf(v, "map saved to %s\n", *mapPath)
	return nil
}

func (u *ui) redraw(g *gocui.Gui) error {
	views := []struct {
		name   string
		render func(v *gocui.View)
	}{
		{"table", func(v *gocui.View) { u.monitor.renderTable(v) }},
		{"outputs", func(v *gocui.View) { u.monitor.renderOutputs(v) }},
		{"next", func(v *gocui.View) { u.monitor.renderNext(v, 20) }},
	}

	for _, view := range views {
		v, err := g.View(view.name)
		if err != nil {
			return err
		}
		v.Clear()
		view.render(v)
	}
	return nil
}

func layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	split := maxX / 2

	// top left -> register file
	if v, err := g.SetView("table", 0, 0, split-1, 7); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Segment table"
	}

	// top right -> outputs of the last step
	if v, err := g.SetView("outputs", split, 0, maxX-1, 11); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Outputs"
	}

	// left -> upcoming steps
	if v, err := g.SetView("next", 0, 8, split-1, maxY-10); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Next steps"
	}

	// bottom -> log
	if v, err := g.SetView("log", 0, maxY-9, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Log"
		v.Autoscroll = true
		v.Wrap = true
	}
	return nil
}

func quit(_ *gocui.Gui, _ *gocui.View) error {
	return gocui.ErrQuit
}
