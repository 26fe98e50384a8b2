package main

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cobra"

	"vdypcore/internal/siteindex"
)

type siteOptions struct {
	curve   string
	genus   string
	age     float64
	si      float64
	height  float64
	ageType string
	y2bh    float64
}

func siteCmd() *cobra.Command {
	var opts siteOptions
	cmd := &cobra.Command{
		Use:   "site",
		Short: "Convert between age, height and site index on a site curve",
		Long: `Given two of --age, --height and --si, compute the third on a site curve.

The curve is named with --curve (name or index) or chosen from --genus.
Years to breast height default to the curve's estimate for the site index.

Examples:
  vdyp-project site --curve FDC --age 60 --height 26
  vdyp-project site --genus PL --age 30 --si 18 --age-type breast`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			return runSite(cmd, opts, flags.Changed("age"), flags.Changed("si"), flags.Changed("height"), flags.Changed("y2bh"))
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.curve, "curve", "", "site curve name or index")
	f.StringVar(&opts.genus, "genus", "", "genus whose default curve is used when --curve is not set")
	f.Float64Var(&opts.age, "age", 0, "stand age in years")
	f.Float64Var(&opts.si, "si", 0, "site index in metres at index age 50")
	f.Float64Var(&opts.height, "height", 0, "dominant height in metres")
	f.StringVar(&opts.ageType, "age-type", "total", "age type: total or breast")
	f.Float64Var(&opts.y2bh, "y2bh", 0, "years to breast height")
	return cmd
}

func runSite(cmd *cobra.Command, opts siteOptions, hasAge, hasSI, hasHeight, hasY2BH bool) error {
	curve, err := resolveCurve(opts.curve, opts.genus)
	if err != nil {
		return err
	}
	ageType, err := siteindex.ParseAgeType(opts.ageType)
	if err != nil {
		return err
	}
	given := 0
	for _, ok := range []bool{hasAge, hasSI, hasHeight} {
		if ok {
			given++
		}
	}
	if given != 2 {
		return errors.New("exactly two of --age, --si and --height are required")
	}
	out := cmd.OutOrStdout()
	switch {
	case !hasHeight:
		y2bh, err := yearsToBreastHeight(curve, opts.si, opts.y2bh, hasY2BH)
		if err != nil {
			return err
		}
		h, err := siteindex.HeightFromAge(curve.ID, opts.age, ageType, opts.si, y2bh)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "curve %s: height %.2f m at %s age %g (site index %g)\n", curve.Name, h, ageType, opts.age, opts.si)
	case !hasSI:
		v, err := solveSiteIndex(curve, opts, ageType, hasY2BH)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "curve %s: site index %.2f m for height %g at %s age %g\n", curve.Name, v, opts.height, ageType, opts.age)
	default:
		y2bh, err := yearsToBreastHeight(curve, opts.si, opts.y2bh, hasY2BH)
		if err != nil {
			return err
		}
		a, err := siteindex.AgeFromHeight(curve.ID, opts.height, ageType, opts.si, y2bh)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "curve %s: %s age %.1f for height %g (site index %g)\n", curve.Name, ageType, a, opts.height, opts.si)
	}
	return nil
}

func yearsToBreastHeight(curve *siteindex.Curve, si, given float64, hasGiven bool) (float64, error) {
	if hasGiven {
		return given, nil
	}
	return siteindex.YearsToBreastHeight(curve.ID, si)
}

// solveSiteIndex re-estimates years to breast height from each site index
// until the two agree when the caller supplied none.
func solveSiteIndex(curve *siteindex.Curve, opts siteOptions, ageType siteindex.AgeType, hasY2BH bool) (float64, error) {
	if hasY2BH || ageType == siteindex.AgeBreast {
		return siteindex.SiteIndexFromHeight(curve.ID, opts.age, ageType, opts.height, opts.y2bh)
	}
	si := opts.height
	for range 20 {
		y2bh, err := siteindex.YearsToBreastHeight(curve.ID, si)
		if err != nil {
			return 0, err
		}
		next, err := siteindex.SiteIndexFromHeight(curve.ID, opts.age, ageType, opts.height, y2bh)
		if err != nil {
			return 0, err
		}
		if math.Abs(next-si) < 0.001 {
			return next, nil
		}
		si = next
	}
	return si, nil
}

func resolveCurve(curve, genus string) (*siteindex.Curve, error) {
	switch {
	case curve != "":
		if id, err := strconv.Atoi(curve); err == nil {
			return siteindex.Lookup(siteindex.CurveID(id))
		}
		return siteindex.CurveByName(curve)
	case genus != "":
		return siteindex.DefaultCurve(genus)
	default:
		return nil, errors.New("--curve or --genus is required")
	}
}
