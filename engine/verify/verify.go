package verify

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-rgtc/common"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/bc4"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/renderer/dual_view"
)

// ErrReleased is returned by Verify after Release.
var ErrReleased = errors.New("verifier released")

// BufferReader copies a GPU buffer back to host memory. The renderer satisfies it.
type BufferReader interface {
	ReadBuffer(src *wgpu.Buffer, size uint64) ([]byte, error)
}

// Report summarizes one readback of the output storage.
type Report struct {
	// Width and Height are the verified image size in texels.
	Width, Height int

	// Blocks is the number of 4x4 blocks compared.
	Blocks int

	// Mismatches counts blocks whose GPU bytes differ from the reference encoder's.
	Mismatches int

	// MaxError is the largest absolute difference between a decoded texel and the source red channel.
	MaxError int

	// MeanError is the mean absolute difference over all texels.
	MeanError float64

	// BoundViolations counts blocks whose decoded error exceeds the quantization bound of their value range.
	BoundViolations int

	// Published is the publish count of the output at readback time.
	Published uint64

	// Elapsed is the wall time of readback plus comparison.
	Elapsed time.Duration
}

// OK reports whether the GPU output matched the reference encoder byte for byte.
func (r Report) OK() bool {
	return r.Mismatches == 0 && r.BoundViolations == 0
}

// verifier is the implementation of the Verifier interface.
type verifier struct {
	mu sync.Mutex

	reader BufferReader
	output dual_view.DualView
	source *common.ImportedTexture

	// reference is the CPU encoding of the source red channel, computed once.
	reference []byte
	red       []uint8

	workers int
	pool    worker.DynamicWorkerPool
}

// Verifier reads the output storage back and checks it against the CPU reference codec.
type Verifier interface {
	// Verify reads the published output back, decodes it block row by block row on a worker
	// pool and compares it with the source.
	//
	// Returns:
	//   - Report: the comparison statistics
	//   - error: dual_view.ErrNotPublished before the first publish, or a readback error
	Verify() (Report, error)

	// Release stops the worker pool.
	Release()
}

var _ Verifier = &verifier{}

// NewVerifier creates a Verifier for the output of a compressor working on source.
//
// Parameters:
//   - reader: the buffer reader, usually the renderer
//   - output: the dual-view output resource
//   - source: the RGBA8 source texture, already at the output size
//   - options: a variadic list of VerifierBuilderOption functions
//
// Returns:
//   - Verifier: the verifier
//   - error: error if the source does not match the output size
func NewVerifier(reader BufferReader, output dual_view.DualView, source *common.ImportedTexture, options ...VerifierBuilderOption) (Verifier, error) {
	v := &verifier{
		reader:  reader,
		output:  output,
		source:  source,
		workers: runtime.NumCPU(),
	}
	for _, option := range options {
		option(v)
	}

	w, h := int(output.Width()), int(output.Height())
	if source.Width != w || source.Height != h || len(source.Pixels) < w*h*4 {
		return nil, fmt.Errorf("source is %dx%d, output is %dx%d", source.Width, source.Height, w, h)
	}

	v.red = bc4.ExtractChannel(source.Pixels[:w*h*4], 0)
	ref, err := bc4.Encode(v.red, w, h)
	if err != nil {
		return nil, err
	}
	v.reference = ref
	v.pool = worker.NewDynamicWorkerPool(v.workers, h/bc4.BlockDim, time.Second)
	return v, nil
}

func (v *verifier) Verify() (Report, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.pool == nil {
		return Report{}, ErrReleased
	}
	if _, err := v.output.ReadView(); err != nil {
		return Report{}, err
	}

	start := time.Now()
	data, err := v.reader.ReadBuffer(v.output.Buffer(), v.output.Size())
	if err != nil {
		return Report{}, fmt.Errorf("read back %s: %w", v.output.Label(), err)
	}

	rep, err := v.compare(data)
	if err != nil {
		return Report{}, err
	}
	rep.Published = v.output.Published()
	rep.Elapsed = time.Since(start)

	common.Logger().Info("verified output",
		"blocks", rep.Blocks,
		"mismatches", rep.Mismatches,
		"max_error", rep.MaxError,
		"mean_error", fmt.Sprintf("%.3f", rep.MeanError),
		"bound_violations", rep.BoundViolations,
		"elapsed", rep.Elapsed)
	return rep, nil
}

// rowStats is the result of one block row task.
type rowStats struct {
	mismatches      int
	boundViolations int
	maxErr          int
	sumErr          int
}

// compare decodes data with one worker task per block row and accumulates the statistics.
func (v *verifier) compare(data []byte) (Report, error) {
	w, h := int(v.output.Width()), int(v.output.Height())
	blocksX, blocksY := w/bc4.BlockDim, h/bc4.BlockDim
	if len(data) < len(v.reference) {
		return Report{}, fmt.Errorf("%w: read %d bytes, want %d", bc4.ErrShortBuffer, len(data), len(v.reference))
	}

	decoded := make([]uint8, w*h)
	stats := make([]rowStats, blocksY)
	errs := make([]error, blocksY)

	var wg sync.WaitGroup
	wg.Add(blocksY)
	for by := range blocksY {
		v.pool.SubmitTask(worker.Task{
			ID: by,
			Do: func() (any, error) {
				defer wg.Done()
				if err := bc4.DecodeBlockRows(data, w, h, by, by+1, decoded); err != nil {
					errs[by] = err
					return nil, err
				}
				stats[by] = v.rowStats(data, decoded, by, blocksX, w)
				return nil, nil
			},
		})
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return Report{}, err
	}

	rep := Report{Width: w, Height: h, Blocks: blocksX * blocksY}
	sum := 0
	for _, s := range stats {
		rep.Mismatches += s.mismatches
		rep.BoundViolations += s.boundViolations
		rep.MaxError = max(rep.MaxError, s.maxErr)
		sum += s.sumErr
	}
	rep.MeanError = float64(sum) / float64(w*h)
	return rep, nil
}

// rowStats compares block row by of the decoded image with the reference bytes and the source.
func (v *verifier) rowStats(data []byte, decoded []uint8, by, blocksX, w int) rowStats {
	var s rowStats
	for bx := range blocksX {
		off := (by*blocksX + bx) * bc4.BlockBytes
		if string(data[off:off+bc4.BlockBytes]) != string(v.reference[off:off+bc4.BlockBytes]) {
			s.mismatches++
		}

		lo, hi := uint8(255), uint8(0)
		blockErr := 0
		for py := range bc4.BlockDim {
			for px := range bc4.BlockDim {
				i := (by*bc4.BlockDim+py)*w + bx*bc4.BlockDim + px
				src := v.red[i]
				lo, hi = min(lo, src), max(hi, src)
				d := common.AbsDiff(decoded[i], src)
				blockErr = max(blockErr, d)
				s.sumErr += d
			}
		}
		if blockErr > bc4.MaxQuantizationError(lo, hi) {
			s.boundViolations++
		}
		s.maxErr = max(s.maxErr, blockErr)
	}
	return s
}

func (v *verifier) Release() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.pool != nil {
		v.pool.Stop()
		v.pool = nil
	}
}
