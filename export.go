package campath

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

// ErrCanceled reports that the user canceled an export. It is the one
// failure the export path distinguishes: a cancel is silently ignored, any
// other failure is logged as a warning.
var ErrCanceled = errors.New("campath: export canceled")

// Prompter asks the user to confirm or adjust the destination path. It
// returns [ErrCanceled] when the user backs out.
type Prompter func(suggested string) (string, error)

// WriteOBJ writes the polyline as a Wavefront OBJ line object: one v record
// per point and l records chaining consecutive points.
func WriteOBJ(w io.Writer, p Polyline) error {
	bw := bufio.NewWriter(w)
	for _, pt := range p {
		if _, err := fmt.Fprintf(bw, "v %g %g %g\n", pt.X, pt.Y, pt.Z); err != nil {
			return err
		}
	}
	for i := 1; i < len(p); i++ {
		if _, err := fmt.Fprintf(bw, "l %d %d\n", i, i+1); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Export writes the polyline to a file, routing the suggested path through
// prompt when one is given. A user cancel is ignored; any other failure is
// logged as a warning and swallowed, matching how the rest of the system
// degrades rather than surfaces errors.
func Export(path string, p Polyline, prompt Prompter, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	if prompt != nil {
		chosen, err := prompt(path)
		if err != nil {
			if !errors.Is(err, ErrCanceled) {
				log.Warn("export prompt failed", zap.String("path", path), zap.Error(err))
			}
			return
		}
		path = chosen
	}

	f, err := os.Create(path)
	if err != nil {
		log.Warn("export failed", zap.String("path", path), zap.Error(err))
		return
	}
	err = WriteOBJ(f, p)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Warn("export failed", zap.String("path", path), zap.Error(err))
	}
}
