package blocklist

import (
	"os"

	"github.com/cheggaaa/pb/v3"
)

const progressTemplate pb.ProgressBarTemplate = `{{string . "prefix"}} {{counters . }} {{bar . "[" "=" ">" " " "]"}} {{percent . }} {{etime . }}`

// progressBar counts finished sources on stderr. A nil *progressBar is a no-op.
type progressBar struct {
	bar *pb.ProgressBar
}

func newProgressBar(total int, enabled bool) *progressBar {
	if !enabled || total == 0 {
		return nil
	}
	bar := progressTemplate.New(total)
	bar.Set("prefix", "blocklists")
	bar.SetWriter(os.Stderr)
	bar.Start()
	return &progressBar{bar: bar}
}

func (p *progressBar) Increment() {
	if p == nil {
		return
	}
	p.bar.Increment()
}

func (p *progressBar) Finish() {
	if p == nil {
		return
	}
	p.bar.Finish()
}
