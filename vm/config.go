package vm

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	jvmbridge "github.com/wippyai/jvm-bridge"
	"github.com/wippyai/jvm-bridge/errors"
)

// Version is the interface version requested at start-up.
type Version = jvmbridge.Version

const (
	Version11 = jvmbridge.Version1_1
	Version12 = jvmbridge.Version1_2
	Version14 = jvmbridge.Version1_4
	Version16 = jvmbridge.Version1_6

	DefaultVersion = Version16
)

var knownVersions = map[uint64]Version{
	1: Version11,
	2: Version12,
	4: Version14,
	6: Version16,
}

// Options configures runtime creation.
type Options struct {
	// Options are passed to the runtime verbatim, one VMOption each.
	Options []string
	// IgnoreUnrecognized tells the runtime to skip options it does not know.
	IgnoreUnrecognized bool
	// Version is the requested interface version. Zero means DefaultVersion.
	Version Version
}

type optionsFile struct {
	Version            string   `yaml:"version"`
	Options            []string `yaml:"options"`
	IgnoreUnrecognized bool     `yaml:"ignore_unrecognized"`
}

// LoadOptions decodes a YAML options document:
//
//	version: "1.6"
//	ignore_unrecognized: true
//	options:
//	  - -Xmx64m
func LoadOptions(data []byte) (Options, error) {
	var f optionsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Options{}, errors.Wrap(errors.PhaseStartup, errors.KindInvalidInput, err, "decode options")
	}

	opts := Options{
		Options:            f.Options,
		IgnoreUnrecognized: f.IgnoreUnrecognized,
	}
	if f.Version != "" {
		v, err := ParseVersion(f.Version)
		if err != nil {
			return Options{}, err
		}
		opts.Version = v
	}
	return opts, nil
}

// ParseVersion parses an interface version. Accepted forms are "1.6",
// "v1.6", "1.6.0" and the short "v6"/"6".
func ParseVersion(s string) (Version, error) {
	sv, err := semver.NewVersion(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.New(errors.PhaseStartup, errors.KindInvalidInput).
			Value(s).
			Cause(err).
			Detail("invalid interface version %q", s).
			Build()
	}

	major, minor := sv.Major(), sv.Minor()
	if major != 1 && minor == 0 && sv.Patch() == 0 {
		major, minor = 1, major
	}
	if v, ok := knownVersions[minor]; ok && major == 1 {
		return v, nil
	}
	return 0, errors.New(errors.PhaseStartup, errors.KindUnsupported).
		Value(s).
		Detail("unsupported interface version %q", s).
		Build()
}

func semverOf(v Version) *semver.Version {
	return semver.New(uint64(int32(v)>>16), uint64(int32(v)&0xffff), 0, "", "")
}

// satisfies reports whether the runtime's reported version is at least the
// requested one.
func satisfies(reported, requested Version) (bool, error) {
	c, err := semver.NewConstraint(fmt.Sprintf(">= %s", semverOf(requested)))
	if err != nil {
		return false, err
	}
	return c.Check(semverOf(reported)), nil
}

func (o Options) initArgs() *jvmbridge.InitArgs {
	args := &jvmbridge.InitArgs{
		Version:            o.Version,
		IgnoreUnrecognized: o.IgnoreUnrecognized,
		Options:            make([]jvmbridge.VMOption, 0, len(o.Options)),
	}
	if args.Version == 0 {
		args.Version = DefaultVersion
	}
	for _, s := range o.Options {
		args.Options = append(args.Options, jvmbridge.VMOption{OptionString: s})
	}
	return args
}
