package printer

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jonboulle/clockwork"
	"github.com/phin1x/go-ipp"

	"github.com/cjeanneret/photobooth/internal/debug"
)

const jobTitle = "Photobooth"

// Client is the part of the CUPS IPP API the booth uses. *ipp.CUPSClient
// satisfies it.
type Client interface {
	GetPrinters(attributes []string) (map[string]ipp.Attributes, error)
	PrintFile(filePath, printer string, jobAttributes map[string]interface{}) (int, error)
	GetJobs(printer, class string, whichJobs string, myJobs bool, firstJobId, limit int, attributes []string) (map[int]ipp.Attributes, error)
}

// NewClient connects to the CUPS scheduler at host:port without
// authentication.
func NewClient(host string, port int) *ipp.CUPSClient {
	return ipp.NewCUPSClient(host, port, "", "", false)
}

// Cups prints through a CUPS scheduler over IPP.
type Cups struct {
	name    string
	workDir string
	client  Client
	clock   clockwork.Clock
}

// NewCups creates a CUPS service for the named queue. Print files are written
// to workDir before submission.
func NewCups(name, workDir string, client Client, clock clockwork.Clock) *Cups {
	return &Cups{name: name, workDir: workDir, client: client, clock: clock}
}

// Start checks the queue is known to the scheduler.
func (c *Cups) Start() error {
	printers, err := c.client.GetPrinters([]string{ipp.AttributePrinterName})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPrinterNotFound, c.name, err)
	}
	if _, ok := printers[c.name]; !ok {
		return fmt.Errorf("%w: %s (scheduler has %d printers)", ErrPrinterNotFound, c.name, len(printers))
	}
	if err := os.MkdirAll(c.workDir, 0o755); err != nil {
		return fmt.Errorf("create print work dir: %w", err)
	}
	debug.Info("Printer %s ready", c.name)
	return nil
}

// PrintImage writes img as ToPrint-<timestamp>.png and submits it.
func (c *Cups) PrintImage(img image.Image, copies int) (JobID, error) {
	if copies < 1 {
		return "", fmt.Errorf("copies must be >= 1, got %d", copies)
	}
	path := filepath.Join(c.workDir, "ToPrint-"+c.clock.Now().Format("20060102-150405.000")+".png")
	if err := writePNG(path, img); err != nil {
		return "", err
	}

	debug.Trace("CUPS: print %s on %s, %d copies", path, c.name, copies)
	id, err := c.client.PrintFile(path, c.name, map[string]interface{}{
		ipp.AttributeCopies:  copies,
		ipp.AttributeJobName: jobTitle,
	})
	if err != nil {
		return "", fmt.Errorf("submit print job: %w", err)
	}
	job := JobID(strconv.Itoa(id))
	debug.Info("Print job %s submitted (%d copies)", job, copies)
	return job, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create print file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode print file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close print file: %w", err)
	}
	return nil
}

// HasFinished reports true once job is no longer listed as not-completed on
// the queue.
func (c *Cups) HasFinished(job JobID) (bool, error) {
	if job == "" {
		return false, nil
	}
	id, err := strconv.Atoi(string(job))
	if err != nil {
		return false, fmt.Errorf("invalid job id %q: %w", job, err)
	}
	jobs, err := c.client.GetJobs(c.name, "", ipp.JobStateFilterNotCompleted, false, 0, 0, []string{ipp.AttributeJobID})
	if err != nil {
		return false, fmt.Errorf("list print jobs: %w", err)
	}
	_, pending := jobs[id]
	return !pending, nil
}
