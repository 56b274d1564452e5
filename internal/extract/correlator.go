package extract

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
)

// showinfo emits one line per selected frame, interleaved with unrelated
// log noise, e.g.:
//
//	[Parsed_showinfo_1 @ 0x5564] n:   0 pts:  15360 pts_time:0.6  ...
var showinfoPattern = regexp.MustCompile(`n:\s*(\d+)\s+pts:\s*(\d+)\s+pts_time:\s*([\d.]+)`)

type frameMeta struct {
	N       int
	PTS     int64
	PTSTime float64
}

// parseDiagnostics scans the ffmpeg log stream line by line and collects one
// metadata record per matching showinfo line, in the order lines are observed.
func parseDiagnostics(r io.Reader) ([]frameMeta, error) {
	var metas []frameMeta

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		match := showinfoPattern.FindStringSubmatch(scanner.Text())
		if match == nil {
			continue
		}

		n, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		pts, err := strconv.ParseInt(match[2], 10, 64)
		if err != nil {
			continue
		}
		ptsTime, err := strconv.ParseFloat(match[3], 64)
		if err != nil {
			continue
		}

		metas = append(metas, frameMeta{N: n, PTS: pts, PTSTime: ptsTime})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning diagnostics: %w", err)
	}

	return metas, nil
}

// sceneRecords zips the Nth metadata record with the Nth sorted output file.
// The two sequences must agree in length; a mismatch fails loudly rather
// than silently truncating, since positional correspondence is the only
// link between them.
func sceneRecords(metas []frameMeta, files []string) ([]FrameRecord, error) {
	if len(metas) != len(files) {
		return nil, fmt.Errorf("scene correlation mismatch: %d diagnostic records, %d output files", len(metas), len(files))
	}

	records := make([]FrameRecord, 0, len(files))
	for i, path := range files {
		meta := metas[i]
		t := meta.PTSTime
		pts := meta.PTS
		records = append(records, FrameRecord{
			Path:    path,
			Mode:    ModeScene,
			Ordinal: i + 1,
			Time:    &t,
			PTS:     &pts,
		})
	}
	return records, nil
}
