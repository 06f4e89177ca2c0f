// rigtool is a CLI utility for working with rig behavior models.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Faultbox/midgard-rig/internal/assets"
	"github.com/Faultbox/midgard-rig/internal/ground"
	"github.com/Faultbox/midgard-rig/internal/rig"
	"github.com/Faultbox/midgard-rig/internal/riglogic"
	"github.com/Faultbox/midgard-rig/pkg/formats"
	"github.com/Faultbox/midgard-rig/pkg/math"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "build":
		cmdBuild(args)
	case "dump":
		cmdDump(args)
	case "eval":
		cmdEval(args)
	case "ground":
		cmdGround(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`rigtool - rig behavior model utility

Usage:
  rigtool <command> [options]

Commands:
  info <model>                         Show model tables and validation result
  build <model.yaml> [output.bhv]      Compile a YAML model to binary
  dump <model.bhv>                     Print a binary model as YAML
  eval [-lod n] <model> [name=value]   Evaluate the model for raw control values
  ground [options] <output.grd>        Write a rolling-hills ground table

Examples:
  rigtool info face.bhv
  rigtool build face.yaml
  rigtool eval -lod 1 face.bhv jaw_open=0.5 brow_up=1
  rigtool ground -w 64 -d 64 -amp 0.3 hills.grd`)
}

func load(path string) *formats.BHV {
	bhv, err := assets.LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return bhv
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rigtool info <model>")
		os.Exit(1)
	}

	bhv := load(args[0])

	fmt.Printf("Model:    %s\n", bhv.Name)
	fmt.Printf("Version:  %s\n", bhv.Version)
	fmt.Printf("LODs:     %d\n", bhv.LODCount)
	fmt.Println()
	fmt.Println("Controls:")
	fmt.Printf("  %-14s %d\n", "gui", len(bhv.GUIControls))
	fmt.Printf("  %-14s %d\n", "raw", len(bhv.RawControls))
	fmt.Printf("  %-14s %d\n", "corrective", len(bhv.Correctives))
	fmt.Printf("  %-14s %d (%d networks)\n", "ml", len(bhv.MLControls), len(bhv.Networks))
	fmt.Println("Outputs:")
	fmt.Printf("  %-14s %d %v\n", "joints", len(bhv.Joints), bhv.JointLODs)
	fmt.Printf("  %-14s %d\n", "joint groups", len(bhv.JointGroups))
	fmt.Printf("  %-14s %d %v\n", "blend shapes", len(bhv.BlendShapes), bhv.BlendShapeLODs)
	fmt.Printf("  %-14s %d %v\n", "animated maps", len(bhv.AnimatedMaps), bhv.AnimatedMapLODs)
	fmt.Printf("  %-14s %d\n", "driver joints", len(bhv.DriverJoints))
	fmt.Println()

	if err := riglogic.Validate(bhv); err != nil {
		fmt.Printf("Invalid:\n  %s\n", strings.ReplaceAll(err.Error(), "; ", "\n  "))
		os.Exit(1)
	}
	fmt.Println("Valid")
}

func cmdBuild(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rigtool build <model.yaml> [output.bhv]")
		os.Exit(1)
	}

	input := args[0]
	output := strings.TrimSuffix(input, filepath.Ext(input)) + ".bhv"
	if len(args) > 1 {
		output = args[1]
	}

	bhv := load(input)
	if err := riglogic.Validate(bhv); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid model: %v\n", err)
		os.Exit(1)
	}

	data := bhv.Encode()
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Built: %s (%d bytes)\n", output, len(data))
}

func cmdDump(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rigtool dump <model.bhv>")
		os.Exit(1)
	}

	data, err := load(args[0]).EncodeYAML()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Stdout.Write(data)
}

func cmdEval(args []string) {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	lod := fs.Int("lod", 0, "Level of detail")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rigtool eval [-lod n] <model> [name=value ...]")
		os.Exit(1)
	}

	model, err := riglogic.NewBehaviorModel(load(fs.Arg(0)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	controls := make(map[string]int, model.RawControlCount())
	for i := 0; i < model.RawControlCount(); i++ {
		controls[model.RawControlName(i)] = i
	}

	eval := riglogic.NewEvaluator()
	eval.Initialize(model, rig.NewHierarchy())
	eval.SetLOD(*lod)

	for _, arg := range fs.Args()[1:] {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			fmt.Fprintf(os.Stderr, "Expected name=value, got %q\n", arg)
			os.Exit(1)
		}
		idx, ok := controls[name]
		if !ok {
			fmt.Fprintf(os.Stderr, "Unknown raw control: %s\n", name)
			os.Exit(1)
		}
		v, err := strconv.ParseFloat(value, 32)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Bad value for %s: %v\n", name, err)
			os.Exit(1)
		}
		eval.SetRawControl(idx, float32(v))
	}

	out := eval.Evaluate(riglogic.Inputs{})
	fmt.Printf("LOD %d of %d\n", eval.LOD(), model.LODCount())

	joints := model.Joints()
	if n := out.JointCount(); n > 0 {
		fmt.Println("\nJoints:")
		for i := 0; i < n; i++ {
			d := out.JointDelta(i)
			if isIdentityDelta(d) {
				continue
			}
			fmt.Printf("  %-16s t=(%.4f %.4f %.4f) r=(%.4f %.4f %.4f %.4f) s=(%.4f %.4f %.4f)\n",
				joints[i].Name,
				d.Translation.X, d.Translation.Y, d.Translation.Z,
				d.Rotation.X, d.Rotation.Y, d.Rotation.Z, d.Rotation.W,
				d.Scale.X, d.Scale.Y, d.Scale.Z)
		}
	}

	shapes := model.BlendShapes()
	if len(out.BlendShapes) > 0 {
		fmt.Println("\nBlend shapes:")
		for i, v := range out.BlendShapes {
			fmt.Printf("  %-16s %.4f\n", shapes[i].Name, v)
		}
	}

	maps := model.AnimatedMaps()
	if len(out.AnimatedMaps) > 0 {
		fmt.Println("\nAnimated maps:")
		for i, v := range out.AnimatedMaps {
			fmt.Printf("  %-16s %.4f\n", maps[i], v)
		}
	}
}

func isIdentityDelta(d math.Transform) bool {
	return d.Translation == (math.Vec3{}) &&
		d.Scale == (math.Vec3{}) &&
		d.Rotation.AngleTo(math.QuatIdentity()) < 1e-6
}

func cmdGround(args []string) {
	fs := flag.NewFlagSet("ground", flag.ExitOnError)
	width := fs.Int("w", 64, "Cells along X")
	depth := fs.Int("d", 64, "Cells along Z")
	cell := fs.Float64("cell", 1, "Cell size in world units")
	amplitude := fs.Float64("amp", 0.3, "Hill amplitude")
	wavelength := fs.Float64("wave", 12, "Hill wavelength")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rigtool ground [options] <output.grd>")
		os.Exit(1)
	}

	field := ground.NewRollingHeightfield(*width, *depth, float32(*cell), float32(*amplitude), float32(*wavelength))
	table := field.GRD()
	data := table.Encode()
	if err := os.WriteFile(fs.Arg(0), data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	lo, hi := table.HeightRange()
	fmt.Printf("Written: %s (%dx%d cells, heights %.3f..%.3f, %d bytes)\n",
		fs.Arg(0), table.Width, table.Depth, lo, hi, len(data))
}
