package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-core/pkg/errors"
)

const devVersion = "main"

// CheckCompatibility checks that engineVersion satisfies the constraint a
// strategy declares, e.g. "^1.0", "~1.2" or ">= 1.0, < 2.0". A bare version
// such as "1.2.0" means same major and minor. Development builds ("main")
// and an empty constraint skip the check.
func CheckCompatibility(engineVersion, constraint string) error {
	engineVersion = strings.TrimPrefix(strings.TrimSpace(engineVersion), "v")
	constraint = strings.TrimSpace(constraint)

	if engineVersion == devVersion || constraint == "" || constraint == devVersion {
		return nil
	}

	engine, err := semver.NewVersion(engineVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid engine version %q", engineVersion)
	}

	if bare, err := semver.StrictNewVersion(strings.TrimPrefix(constraint, "v")); err == nil {
		if bare.Major() != engine.Major() || bare.Minor() != engine.Minor() {
			return errors.Newf(errors.ErrCodeVersionMismatch, "engine is %d.%d.x but strategy requires %d.%d.x",
				engine.Major(), engine.Minor(), bare.Major(), bare.Minor())
		}

		return nil
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid version constraint %q", constraint)
	}

	if ok, reasons := c.Validate(engine); !ok {
		msg := "constraint not satisfied"
		if len(reasons) > 0 {
			msg = reasons[0].Error()
		}

		return errors.Newf(errors.ErrCodeVersionMismatch, "engine %s does not satisfy %q: %s", engine, constraint, msg)
	}

	return nil
}
