package maint

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"go.uber.org/zap"

	"github.com/conn-castle/maintd/internal/defs"
	"github.com/conn-castle/maintd/internal/defsfile"
	"github.com/conn-castle/maintd/internal/invoke"
	"github.com/conn-castle/maintd/internal/messages"
)

const (
	backupNameLayout = "2006-01-02_15.04"
	backupSuffix     = ".p44cfg"
	// backupPreambleFmt is the download header block the web server forwards
	// ahead of the archive the backup script writes to stdout.
	backupPreambleFmt = "\x03application/octet-stream\r\n\x08Content-Disposition: attachment;filename=%s\r\n"
	archiveDefsFile   = "p44defs"
)

// RestoreCheck compares a prepared configuration archive with the running unit.
type RestoreCheck struct {
	GTIN            string `json:"gtin"`
	Model           string `json:"model"`
	Serial          string `json:"serial"`
	Version         string `json:"version"`
	Time            string `json:"time"`
	OldArchive      bool   `json:"oldarchive"`
	DifferentModel  bool   `json:"differentmodel"`
	DifferentSerial bool   `json:"differentserial"`
	OldFirmware     bool   `json:"oldfirmware"`
	// Changes is a unified diff from the unit's definitions to the archive's.
	Changes string `json:"changes,omitempty"`
}

// BackupFileName names the archive offered for download.
func (d *Dispatcher) BackupFileName() string {
	return d.store.Value(defs.KeyUnitHostname) + "_" + d.opts.Now().Format(backupNameLayout) + backupSuffix
}

func (d *Dispatcher) configBackup(*request) (Reply, error) {
	action := d.shellAction(d.opts.Tools.ConfigBackup, messages.MaintBackupExecFailed)
	action.Preamble = fmt.Sprintf(backupPreambleFmt, d.BackupFileName())
	return Replace(action), nil
}

// configRestorePrep reads uploadedfile from the envelope, not from the params.
func (d *Dispatcher) configRestorePrep(req *request) (Reply, error) {
	file, ok := req.envelope.String("uploadedfile")
	if !ok {
		return Reply{}, invalid(messages.MaintMissingUploadedFile)
	}
	cmdline := d.opts.Tools.ConfigRestore + " --prepare " + defsfile.ShellQuote(file)
	d.log.Info("preparing configuration restore", zap.String("file", file))
	d.inv.System(cmdline, true, d.continueWith(req.cmd, d.restorePrepared))
	return Deferred(), nil
}

func (d *Dispatcher) restorePrepared(r invoke.Result) (any, error) {
	if r.Err == nil && r.ExitCode == 1 {
		return nil, newError(KindProcess, r.Trimmed())
	}
	if err := resultError(r); err != nil {
		return nil, err
	}
	prepDir := r.Trimmed()
	check := RestoreCheck{}
	archived, read, err := defs.Load(filepath.Join(prepDir, archiveDefsFile))
	if !read {
		d.log.Warn("configuration archive has no definitions", zap.String("dir", prepDir), zap.Error(err))
		check.OldArchive = true
		archived = defs.New()
	} else {
		check.DifferentModel = d.store.Value(defs.KeyProductGTIN) != archived.Value(defs.KeyProductGTIN)
		check.DifferentSerial = d.store.Value(defs.KeyUnitSerial) != archived.Value(defs.KeyUnitSerial)
		check.OldFirmware = ComparableVersion(d.store.Value(defs.KeyFirmwareVersion)) <
			ComparableVersion(archived.Value(defs.KeyFirmwareVersion))
		check.Changes = udiff.Unified("unit", "archive", d.store.Text(), archived.Text())
	}
	check.GTIN = archived.Value(defs.KeyProductGTIN)
	check.Model = archived.Value(defs.KeyProductModel)
	check.Serial = archived.Value(defs.KeyUnitSerial)
	check.Version = archived.Value(defs.KeyFirmwareVersion)
	check.Time = archived.Value(defs.KeyStatusTime)
	return check, nil
}

// ComparableVersion maps a dotted version of up to four numeric parts to a number
// that orders like the version. Parts weigh 10^7, 10^5, 10^3 and 1; a part that
// does not start with digits counts as 0.
func ComparableVersion(version string) int64 {
	weights := [...]int64{10000000, 100000, 1000, 1}
	if version == "" {
		return 0
	}
	var v int64
	for i, part := range strings.SplitN(version, ".", len(weights)+1) {
		if i >= len(weights) {
			break
		}
		v += int64(leadingDigits(part)) * weights[i]
	}
	return v
}

func leadingDigits(s string) int {
	s = strings.TrimLeft(s, " \t")
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

func (d *Dispatcher) configRestoreApply(req *request) (Reply, error) {
	mode, ok := req.params.Int("mode")
	if !ok || mode < 0 || mode > 3 {
		return Reply{}, invalid(messages.MaintRestoreMode)
	}
	cmdline := d.opts.Tools.ConfigRestore + " --apply " + strconv.Itoa(mode)
	return Replace(d.shellAction(cmdline, messages.MaintRestoreExecFailed)), nil
}
