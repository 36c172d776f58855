package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// PCDType is the format of a pcd file.
type PCDType int

const (
	// PCDAscii ascii format for pcd.
	PCDAscii PCDType = 0
	// PCDBinary binary format for pcd.
	PCDBinary PCDType = 1
	// PCDCompressed binary_compressed format for pcd; not supported for writing.
	PCDCompressed PCDType = 2
)

func _colorToPCDInt(d Data) int {
	if d == nil || !d.HasColor() {
		return 0
	}
	c := d.Color()
	return (int(c.R) << 16) | (int(c.G) << 8) | int(c.B)
}

func _pcdIntToColor(c int) color.NRGBA {
	r := uint8(0xFF & (c >> 16))
	g := uint8(0xFF & (c >> 8))
	b := uint8(0xFF & (c >> 0))
	return color.NRGBA{r, g, b, 255}
}

// ToPCD writes out a point cloud to a PCD file of the given type. Coordinates are written as-is.
func ToPCD(cloud PointCloud, out io.Writer, outputType PCDType) error {
	if outputType == PCDCompressed {
		return errors.New("compressed PCD not yet implemented")
	}
	hasColor := cloud.MetaData().HasColor

	var err error
	if _, err = fmt.Fprintf(out, "VERSION .7\n"); err != nil {
		return err
	}
	if hasColor {
		_, err = fmt.Fprintf(out, "FIELDS x y z rgb\n"+
			"SIZE 4 4 4 4\n"+
			"TYPE F F F I\n"+
			"COUNT 1 1 1 1\n")
	} else {
		_, err = fmt.Fprintf(out, "FIELDS x y z\n"+
			"SIZE 4 4 4\n"+
			"TYPE F F F\n"+
			"COUNT 1 1 1\n")
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "WIDTH %d\n"+
		"HEIGHT %d\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n",
		cloud.Size(),
		1,
		cloud.Size())
	if err != nil {
		return err
	}

	switch outputType {
	case PCDBinary:
		_, err = fmt.Fprintf(out, "DATA binary\n")
	default:
		_, err = fmt.Fprintf(out, "DATA ascii\n")
	}
	if err != nil {
		return err
	}
	return writePCDData(cloud, out, outputType, hasColor)
}

func writePCDData(cloud PointCloud, out io.Writer, pcdtype PCDType, hasColor bool) error {
	var err error
	cloud.Iterate(0, 0, func(pos r3.Vector, d Data) bool {
		switch pcdtype {
		case PCDBinary:
			size := 12
			if hasColor {
				size = 16
			}
			buf := make([]byte, size)
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(pos.X)))
			binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(pos.Y)))
			binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(pos.Z)))
			if hasColor {
				binary.LittleEndian.PutUint32(buf[12:], uint32(_colorToPCDInt(d)))
			}
			_, err = out.Write(buf)
		default:
			if hasColor {
				_, err = fmt.Fprintf(out, "%f %f %f %d\n", pos.X, pos.Y, pos.Z, _colorToPCDInt(d))
			} else {
				_, err = fmt.Fprintf(out, "%f %f %f\n", pos.X, pos.Y, pos.Z)
			}
		}
		return err == nil
	})
	return err
}

type pcdHeader struct {
	fields   []string
	points   int
	dataType PCDType
}

// ReadPCD reads an ascii or binary PCD stream with x y z [rgb] float/int fields as written by ToPCD.
func ReadPCD(inRaw io.Reader) (PointCloud, error) {
	in := bufio.NewReader(inRaw)
	header := pcdHeader{points: -1, dataType: -1}
	for header.dataType < 0 {
		line, err := in.ReadString('\n')
		if err != nil {
			return nil, errors.Wrap(err, "error reading PCD header")
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)
		switch parts[0] {
		case "FIELDS":
			header.fields = parts[1:]
		case "POINTS":
			if len(parts) != 2 {
				return nil, errors.Errorf("bad PCD POINTS line %q", line)
			}
			if header.points, err = strconv.Atoi(parts[1]); err != nil {
				return nil, errors.Wrap(err, "bad PCD POINTS value")
			}
		case "DATA":
			if len(parts) != 2 {
				return nil, errors.Errorf("bad PCD DATA line %q", line)
			}
			switch parts[1] {
			case "ascii":
				header.dataType = PCDAscii
			case "binary":
				header.dataType = PCDBinary
			default:
				return nil, errors.Errorf("unsupported PCD data type %q", parts[1])
			}
		}
	}
	if header.points < 0 {
		return nil, errors.New("PCD header is missing POINTS")
	}
	hasColor := len(header.fields) == 4 && header.fields[3] == "rgb"
	if !hasColor && len(header.fields) != 3 {
		return nil, errors.Errorf("unsupported PCD fields %v", header.fields)
	}

	cloud := NewWithPrealloc(header.points)
	for i := 0; i < header.points; i++ {
		pt, rgb, err := readPCDPoint(in, header.dataType, hasColor)
		if err != nil {
			return nil, errors.Wrapf(err, "reading PCD point %d", i)
		}
		var d Data
		if hasColor {
			d = NewColoredData(_pcdIntToColor(rgb))
		}
		if err := cloud.Set(pt, d); err != nil {
			return nil, err
		}
	}
	return cloud, nil
}

func readPCDPoint(in *bufio.Reader, dataType PCDType, hasColor bool) (r3.Vector, int, error) {
	if dataType == PCDBinary {
		size := 12
		if hasColor {
			size = 16
		}
		buf := make([]byte, size)
		if _, err := io.ReadFull(in, buf); err != nil {
			return r3.Vector{}, 0, err
		}
		pt := r3.Vector{
			X: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf))),
			Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[4:]))),
			Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[8:]))),
		}
		rgb := 0
		if hasColor {
			rgb = int(binary.LittleEndian.Uint32(buf[12:]))
		}
		return pt, rgb, nil
	}

	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return r3.Vector{}, 0, err
	}
	parts := strings.Fields(line)
	want := 3
	if hasColor {
		want = 4
	}
	if len(parts) != want {
		return r3.Vector{}, 0, errors.Errorf("expected %d values, got %q", want, strings.TrimSpace(line))
	}
	vals := make([]float64, 3)
	for i := 0; i < 3; i++ {
		if vals[i], err = strconv.ParseFloat(parts[i], 64); err != nil {
			return r3.Vector{}, 0, err
		}
	}
	rgb := 0
	if hasColor {
		if rgb, err = strconv.Atoi(parts[3]); err != nil {
			return r3.Vector{}, 0, err
		}
	}
	return r3.Vector{X: vals[0], Y: vals[1], Z: vals[2]}, rgb, nil
}
