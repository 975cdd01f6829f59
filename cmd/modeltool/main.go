// modeltool inspects model documents: parent chains, detail selection,
// dye resolution, and live reloading of an asset tree.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/supermodel/internal/assets"
	"github.com/Faultbox/supermodel/internal/config"
	"github.com/Faultbox/supermodel/internal/engine/camera"
	"github.com/Faultbox/supermodel/internal/engine/catalogue"
	"github.com/Faultbox/supermodel/internal/engine/model"
	"github.com/Faultbox/supermodel/internal/engine/supermodel"
	"github.com/Faultbox/supermodel/internal/logger"
	"github.com/Faultbox/supermodel/pkg/math"
)

type env struct {
	cfg     *config.Config
	manager *assets.Manager
	dirs    []*assets.DirSource
	reg     *model.Registry
}

func main() {
	config.ParseFlags()
	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	args = args[1:]

	switch command {
	case "help", "-h", "--help":
		printUsage()
		return
	case "info", "lod", "dyes", "watch":
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	e, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	defer e.manager.Close()

	switch command {
	case "info":
		err = cmdInfo(e, args)
	case "lod":
		err = cmdLOD(e, args)
	case "dyes":
		err = cmdDyes(e, args)
	case "watch":
		err = cmdWatch(e, args)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`modeltool - model document inspector

Usage:
  modeltool [flags] <command> [options]

Flags:
  -config <file>     Config file (default: ./config.yaml)
  -assets <dirs>     Comma separated asset roots
  -lodzoom <factor>  LOD zoom factor
  -debug             Debug logging

Commands:
  info <model>                          Show parent chain, skeleton, animations, matters
  lod [-d 5,12,40] <model> [model...]   Show detail selection at camera distances
  dyes <model> <matter> <tint>          Show materials after applying a dye
  watch                                 Reload models whose documents change

Examples:
  modeltool -assets res info chars/hat
  modeltool lod -d 2,12,1000 chars/hat chars/body
  modeltool dyes chars/body body Red`)
}

func setup() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	e := &env{cfg: cfg, manager: assets.NewManager(cfg.Assets.Extension)}
	e.manager.SetCaching(cfg.Assets.Cache)
	for _, root := range cfg.Assets.Roots {
		dir, err := e.manager.AddDir(root)
		if err != nil {
			logger.Warn("skipping asset root", zap.String("root", root), zap.Error(err))
			continue
		}
		e.dirs = append(e.dirs, dir)
	}
	e.reg = model.NewRegistry(e.manager, catalogue.New())
	return e, nil
}

func cmdInfo(e *env, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: modeltool info <model>")
	}
	m, err := e.reg.Get(args[0], true)
	if err != nil {
		return err
	}
	defer m.Release()

	fmt.Printf("Model: %s\n", m.Name())
	fmt.Println("Chain:")
	for cur := m; cur != nil; cur = cur.Parent() {
		fmt.Printf("  %-30s extent %s\n", cur.Name(), formatExtent(cur.Extent()))
	}

	fmt.Printf("Nodes: %d\n", len(m.Nodes()))
	for _, n := range m.Nodes() {
		fmt.Printf("  %s\n", n.Name())
	}

	fmt.Printf("Primitive groups: %d\n", len(m.Groups()))
	for i, g := range m.Groups() {
		fmt.Printf("  %2d  %6d +%-6d %s\n", i, g.StartIndex, g.IndexCount, g.Material.Identifier)
	}

	fmt.Printf("Animations: %d\n", m.AnimationCount())
	for i := 0; i < m.AnimationCount(); i++ {
		a := m.Animation(i)
		fmt.Printf("  %2d  %-20s %.2fs (%d channels)\n", i, a.Name, a.Duration(), len(a.Channels))
	}

	if actions := m.Actions(); len(actions) > 0 {
		fmt.Println("Actions:")
		for _, name := range actions {
			a := m.Action(name)
			fmt.Printf("  %-20s -> %s\n", a.Name, a.AnimationName)
		}
	}

	if matters := m.Matters(); len(matters) > 0 {
		fmt.Println("Matters:")
		for _, mat := range matters {
			var tints []string
			for _, t := range mat.Tints {
				tints = append(tints, t.Name)
			}
			fmt.Printf("  %-20s replaces %-20s %d use-sites  tints: %s\n",
				mat.Name, mat.Replaces, mat.UseSites(), strings.Join(tints, ", "))
		}
	}
	return nil
}

func formatExtent(ext float32) string {
	switch ext {
	case -1:
		return "always"
	case 0:
		return "hidden"
	}
	return strconv.FormatFloat(float64(ext), 'g', -1, 32)
}

func cmdLOD(e *env, args []string) error {
	fs := flag.NewFlagSet("lod", flag.ExitOnError)
	distances := fs.String("d", "1,10,100", "Comma separated camera distances")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: modeltool lod [-d distances] <model> [model...]")
	}

	sm, err := supermodel.New(e.reg, fs.Args()...)
	if err != nil {
		logger.Warn("some parts failed to load", zap.Error(err))
	}
	defer sm.Release()

	cam := camera.NewOrbitCamera()
	for _, field := range strings.Split(*distances, ",") {
		d, err := strconv.ParseFloat(strings.TrimSpace(field), 32)
		if err != nil {
			return fmt.Errorf("bad distance %q: %w", field, err)
		}
		cam.SetDistance(float32(d))

		ctx := supermodel.NewDrawContext(cam.Position(), cam.Forward())
		ctx.Zoom = e.cfg.Engine.LODZoom
		sm.Draw(ctx, math.Identity(), nil, nil, nil)

		up, down := sm.Bounds()
		fmt.Printf("distance %-8g lod %-8.2f bounds (%g, %g]\n", d, sm.LOD(), up, down)
		for i := 0; i < sm.NumParts(); i++ {
			name := "(hidden)"
			if cur := sm.Current(i); cur != nil {
				name = cur.Name()
			}
			fmt.Printf("  %-30s %s\n", sm.Root(i).Name(), name)
		}
	}
	return nil
}

func cmdDyes(e *env, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: modeltool dyes <model> <matter> <tint>")
	}
	sm, err := supermodel.New(e.reg, args[0])
	if err != nil {
		return err
	}
	defer sm.Release()

	dye := sm.GetDye(model.DyeSelection{Matter: args[1], Tint: args[2]})
	if dye == nil {
		return fmt.Errorf("%s: %w", args[1], model.ErrUnknownMatter)
	}

	props := sm.Catalogues().Properties
	r := supermodel.RendererFunc(func(item supermodel.DrawItem) {
		fmt.Printf("%s\n", item.Model.Name())
		for i, g := range item.Groups {
			fmt.Printf("  %2d  %-20s %s\n", i, g.Material.Identifier, g.Material.Effect)
		}
	})
	sm.Draw(supermodel.NewDrawContext(math.Vec3{}, math.Vec3{Z: 1}).WithLOD(0), math.Identity(),
		[]supermodel.Fashion{dye}, nil, r)

	fmt.Println("Properties:")
	for i := 0; i < props.Len(); i++ {
		v := props.Value(i)
		fmt.Printf("  %-20s %g %g %g %g\n", props.Name(i), v[0], v[1], v[2], v[3])
	}
	return nil
}

func cmdWatch(e *env, args []string) error {
	if len(e.dirs) == 0 {
		return fmt.Errorf("no asset roots to watch")
	}
	children := e.cfg.Engine.ReloadChildren
	w, err := assets.NewWatcher(e.manager, func(name string) {
		if err := e.reg.Reload(name, children); err != nil {
			logger.Error("reload failed", zap.String("model", name), zap.Error(err))
			return
		}
		fmt.Printf("reloaded %s\n", name)
	}, e.cfg.Engine.ReloadDebounce, e.dirs...)
	if err != nil {
		return err
	}
	defer w.Close()

	for _, name := range args {
		m, err := e.reg.Get(name, true)
		if err != nil {
			logger.Warn("preload failed", zap.String("model", name), zap.Error(err))
			continue
		}
		defer m.Release()
	}

	logger.Info("watching asset roots", zap.Int("roots", len(e.dirs)))
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	return nil
}
