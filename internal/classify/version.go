package classify

import (
	"fmt"
	"strings"

	"netsync/internal/textfsm"
)

// Field names read from the show version template.
const (
	FieldVersion      = "VERSION"
	FieldHardware     = "HARDWARE"
	FieldRunningImage = "RUNNING_IMAGE"
)

// ImageState tells payload-encryption images from NPE ones.
type ImageState string

const (
	ImagePE  ImageState = "PE"
	ImageNPE ImageState = "NPE"
)

// VersionResult is what the report needs from show version.
type VersionResult struct {
	ImageState ImageState
	Version    string
	Hardware   string
	Image      string
}

// Version classifies show version output. Exactly one record is expected;
// stacked or multi-chassis output that yields several is rejected rather
// than reduced to its first member.
func Version(raw string, tmpl *textfsm.Template) (VersionResult, error) {
	for _, name := range []string{FieldVersion, FieldHardware, FieldRunningImage} {
		if tmpl.Index(name) < 0 {
			return VersionResult{}, &ParseError{
				Command: "show version",
				Err:     fmt.Errorf("template has no %s value", name),
			}
		}
	}

	records, err := tmpl.ParseText(raw)
	if err != nil {
		return VersionResult{}, fmt.Errorf("parse show version: %w", err)
	}

	switch n := len(records); {
	case n == 0:
		return VersionResult{}, &ParseError{Command: "show version", Err: ErrNoVersionRecord}
	case n > 1:
		return VersionResult{}, &ParseError{
			Command: "show version",
			Err:     fmt.Errorf("expected one version record, got %d", n),
		}
	}

	rec := records[0]

	res := VersionResult{
		Version: rec.Text(tmpl.Index(FieldVersion)),
		Image:   rec.Text(tmpl.Index(FieldRunningImage)),
	}

	if hw := rec.List(tmpl.Index(FieldHardware)); len(hw) > 0 {
		res.Hardware = hw[0]
	}

	res.ImageState = ImageStateOf(res.Image)

	return res, nil
}

// ImageStateOf reports NPE when the image name contains "npe" in any case.
func ImageStateOf(image string) ImageState {
	if strings.Contains(strings.ToLower(image), "npe") {
		return ImageNPE
	}

	return ImagePE
}
