package buffer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"go.uber.org/zap"
)

// Dump prints one line per frame. The format is for humans only.
func (bp *BufferPool) Dump(w io.Writer) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Print buffer (%s, %d frames, %d resident)\n",
		bp.replacer.Name(), bp.frames.size(), bp.index.len())
	fmt.Fprintln(tw, "frame\tfile\tpage\tpinCnt\tvalid\tdirty\tref")
	for i := range bp.frames.descs {
		desc := &bp.frames.descs[i]
		if !desc.valid {
			fmt.Fprintf(tw, "%d\t-\t-\t%d\t%t\t%t\t%t\n", i, desc.pinCnt, desc.valid, desc.dirty, desc.refbit)
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%t\t%t\t%t\n",
			i, desc.file.Name(), desc.pageID, desc.pinCnt, desc.valid, desc.dirty, desc.refbit)
	}
	return tw.Flush()
}

// LogState writes the frame table to the logger at debug level.
func (bp *BufferPool) LogState() {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for i := range bp.frames.descs {
		desc := &bp.frames.descs[i]
		fields := []zap.Field{
			zap.Int("frame", i),
			zap.Int32("pinCnt", desc.pinCnt),
			zap.Bool("valid", desc.valid),
			zap.Bool("dirty", desc.dirty),
			zap.Bool("ref", desc.refbit),
		}
		if desc.valid {
			fields = append(fields, zap.String("file", desc.file.Name()), zap.Uint64("page", uint64(desc.pageID)))
		}
		bp.logger.Debug("frame", fields...)
	}
}
