package report

import (
	"errors"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/Sumatoshi-tech/qodana/pkg/persist"
)

// Report file basenames inside the output directory.
const (
	FullBasename  = "qodana.sarif"
	ShortBasename = "qodana-short.sarif"
)

// Write saves the full report and the short report, which keeps the run
// metadata but strips rules and results.
func (r *Report) Write(dir string, codec persist.Codec) error {
	if codec == nil {
		codec = persist.ReportCodec(false)
	}

	return errors.Join(
		persist.Save(dir, FullBasename, codec, r.SARIF),
		persist.Save(dir, ShortBasename, codec, r.Short()),
	)
}

// Short returns a copy of the report without rules and results.
func (r *Report) Short() *sarif.Report {
	short := *r.SARIF
	short.Runs = make([]*sarif.Run, 0, len(r.SARIF.Runs))

	for _, run := range r.SARIF.Runs {
		stripped := *run
		stripped.Results = []*sarif.Result{}

		if run.Tool.Driver != nil {
			driver := *run.Tool.Driver
			driver.Rules = nil
			stripped.Tool.Driver = &driver
		}

		short.Runs = append(short.Runs, &stripped)
	}

	return &short
}

// Load reads the full report previously written by Write. A nil codec
// picks whichever report file exists in dir.
func Load(dir string, codec persist.Codec) (*sarif.Report, error) {
	if codec == nil {
		var err error

		codec, err = persist.Detect(dir, FullBasename)
		if err != nil {
			return nil, err
		}
	}

	var doc sarif.Report

	err := persist.Load(dir, FullBasename, codec, &doc)
	if err != nil {
		return nil, err
	}

	return &doc, nil
}
