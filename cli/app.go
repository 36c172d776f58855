// Package cli contains the depthmesh command line: reconstruct meshes, point clouds, previews and
// camera frustums from a recorded depth frame.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	// Flags.
	flagConfig     = "config"
	flagIntrinsics = "intrinsics"
	flagDebug      = "debug"
	flagLogFile    = "log-file"
	flagDepth      = "depth"
	flagOutput     = "output"
	flagTolerance  = "tolerance"
	flagSparsity   = "sparsity"
	flagColor      = "color"
	flagBinary     = "binary"
	flagMinDepth   = "min-depth"
	flagMaxDepth   = "max-depth"
	flagRotate     = "rotate"
	flagScale      = "scale"
	flagHistogram  = "histogram"
	flagBins       = "bins"
	flagNear       = "near"
	flagFar        = "far"

	defaultNear = 0.1
	defaultFar  = 5.
)

func depthFlag() cli.Flag {
	return &cli.PathFlag{
		Name:     flagDepth,
		Aliases:  []string{"d"},
		Usage:    "16-bit depth PNG in millimeters",
		Required: true,
	}
}

func outputFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:     flagOutput,
		Aliases:  []string{"o"},
		Usage:    "output `FILE`, format is chosen by extension; repeat the same form (-o a -o b) for several outputs",
		Required: true,
	}
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:            "depthmesh",
		Usage:           "turn depth camera frames into 3D geometry",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load job configuration from `FILE`",
			},
			&cli.PathFlag{
				Name:  flagIntrinsics,
				Usage: "load pinhole intrinsics from `FILE`, overriding the config",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.PathFlag{
				Name:  flagLogFile,
				Usage: "also write logs to a rotating `FILE`",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "mesh",
				Usage:     "reconstruct a triangle mesh (.ply or .stl)",
				UsageText: "depthmesh [global options] mesh --depth <png> --output <file> [--tolerance <mm>]",
				Flags: []cli.Flag{
					depthFlag(),
					outputFlag(),
					&cli.IntFlag{
						Name: flagTolerance,
						Usage: "largest depth difference in millimeters allowed inside one triangle " +
							"(default from config, else 200)",
					},
				},
				Action: MeshAction,
			},
			{
				Name:  "pointcloud",
				Usage: "unproject valid pixels into a point cloud (.pcd)",
				Flags: []cli.Flag{
					depthFlag(),
					outputFlag(),
					&cli.IntFlag{
						Name:  flagSparsity,
						Usage: "keep every Nth pixel in each direction (default from config, else 1)",
					},
					&cli.BoolFlag{
						Name:  flagColor,
						Usage: "color points by depth",
					},
					&cli.BoolFlag{
						Name:  flagBinary,
						Usage: "write binary instead of ascii PCD",
					},
				},
				Action: PointCloudAction,
			},
			{
				Name:  "preview",
				Usage: "render a colorized depth preview (.png, .ppm, .qoi or .webp)",
				Flags: []cli.Flag{
					depthFlag(),
					outputFlag(),
					&cli.UintFlag{
						Name:  flagMinDepth,
						Usage: "clamp the color range below at this depth in millimeters",
					},
					&cli.UintFlag{
						Name:  flagMaxDepth,
						Usage: "clamp the color range above at this depth in millimeters (0 for none)",
					},
					&cli.IntFlag{
						Name:  flagRotate,
						Usage: "rotate the preview clockwise by a multiple of 90 degrees",
					},
					&cli.Float64Flag{
						Name:  flagScale,
						Value: 1,
						Usage: "resize the preview by this factor",
					},
				},
				Action: PreviewAction,
			},
			{
				Name:  "info",
				Usage: "summarize a depth frame",
				Flags: []cli.Flag{
					depthFlag(),
					&cli.StringFlag{
						Name:  flagHistogram,
						Usage: "also plot the depth distribution to `FILE` (.png, .svg, .pdf)",
					},
					&cli.IntFlag{
						Name:  flagBins,
						Value: 50,
						Usage: "number of histogram bins",
					},
				},
				Action: InfoAction,
			},
			{
				Name:  "frustum",
				Usage: "write the camera view volume as an STL overlay",
				Flags: []cli.Flag{
					outputFlag(),
					&cli.Float64Flag{
						Name:  flagNear,
						Value: defaultNear,
						Usage: "near plane distance in meters",
					},
					&cli.Float64Flag{
						Name:  flagFar,
						Value: defaultFar,
						Usage: "far plane distance in meters",
					},
				},
				Action: FrustumAction,
			},
		},
	}
}
