// Package replay discovers and orders the binary segment files of one
// replay and exposes them as an indexed byte stream.
package replay

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoFirstFrame is returned when the zeroth segment of a replay cannot be
// found. Callers abandon the replay on this error.
var ErrNoFirstFrame = errors.New("first replay segment not found")

// Segment file naming: <base>.<n>.vgr, ordered by the numeric suffix.
const segmentExt = ".vgr"

// startGapTolerance is the number of missing low-numbered segments tolerated
// before a hole in the sequence is treated as end-of-replay.
const startGapTolerance = 2

// Frame is one ordered raw byte segment. Index is the contiguous sequence
// position, not the storage suffix; the two differ only when a tolerated hole
// near the start of the sequence was skipped.
type Frame struct {
	Index int
	Data  []byte
}

// Replay is the ordered frame set of one match. The logical concatenation of
// frame bytes is the event byte stream; a global offset into that stream
// always resolves back to a (frame, local offset) pair.
type Replay struct {
	Base   string
	Dir    string
	Frames []Frame

	// starts[i] is the global offset of frame i's first byte.
	starts []int64
	size   int64
}

// Load reads a replay from path, which may be the replay directory combined
// with a base name, or the path of the zeroth segment file itself. maxFrames
// limits how many segments are read; zero or negative means all of them.
// Source bytes are never modified after the read.
func Load(path string, maxFrames int) (*Replay, error) {
	dir, base, err := splitReplayPath(path)
	if err != nil {
		return nil, err
	}

	r := &Replay{Base: base, Dir: dir}
	misses := 0
	for suffix := 0; ; suffix++ {
		if maxFrames > 0 && len(r.Frames) >= maxFrames {
			break
		}
		data, err := os.ReadFile(segmentPath(dir, base, suffix))
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read segment %d: %w", suffix, err)
			}
			if suffix == 0 {
				return nil, fmt.Errorf("%w: %s", ErrNoFirstFrame, segmentPath(dir, base, 0))
			}
			// A hole very close to the start may just be a missing early
			// segment; anywhere else it means the replay has ended.
			if suffix <= startGapTolerance {
				misses++
				if misses <= startGapTolerance {
					continue
				}
			}
			break
		}
		r.Frames = append(r.Frames, Frame{Index: len(r.Frames), Data: data})
	}

	r.buildIndex()
	return r, nil
}

// splitReplayPath resolves a user-supplied path into (dir, base). Accepts a
// segment file path like /replays/match.0.vgr or a bare base path like
// /replays/match.
func splitReplayPath(path string) (dir, base string, err error) {
	dir = filepath.Dir(path)
	name := filepath.Base(path)

	if strings.HasSuffix(name, segmentExt) {
		stem := strings.TrimSuffix(name, segmentExt)
		dot := strings.LastIndexByte(stem, '.')
		if dot < 0 {
			return "", "", fmt.Errorf("segment name %q has no numeric suffix", name)
		}
		return dir, stem[:dot], nil
	}
	return dir, name, nil
}

func segmentPath(dir, base string, suffix int) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%d%s", base, suffix, segmentExt))
}

func (r *Replay) buildIndex() {
	r.starts = make([]int64, len(r.Frames))
	var total int64
	for i, f := range r.Frames {
		r.starts[i] = total
		total += int64(len(f.Data))
	}
	r.size = total
}

// FrameCount returns the number of loaded frames.
func (r *Replay) FrameCount() int { return len(r.Frames) }

// Size returns the length of the logical byte stream, the sum of all frame
// lengths.
func (r *Replay) Size() int64 { return r.size }

// GlobalOffset maps a (frame, local offset) pair to its offset in the logical
// stream.
func (r *Replay) GlobalOffset(frame, local int) int64 {
	return r.starts[frame] + int64(local)
}

// Locate resolves a global stream offset back to its (frame, local offset)
// pair. Returns an error when the offset lies outside the stream.
func (r *Replay) Locate(global int64) (frame, local int, err error) {
	if global < 0 || global >= r.size {
		return 0, 0, fmt.Errorf("offset %d outside stream of %d bytes", global, r.size)
	}
	// First frame starting after the offset; the owner is the one before it.
	i := sort.Search(len(r.starts), func(i int) bool { return r.starts[i] > global })
	frame = i - 1
	local = int(global - r.starts[frame])
	return frame, local, nil
}
