package analysis_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/obslab/internal/analysis"
	"github.com/san-kum/obslab/internal/lti"
	"github.com/san-kum/obslab/internal/observer"
	"github.com/san-kum/obslab/internal/sim"
)

var _ = Describe("Run diagnostics", func() {
	var res *sim.Result

	BeforeEach(func() {
		sys, err := lti.NewSpringMass(1.0, 1.0, 0.0)
		Expect(err).NotTo(HaveOccurred())
		obs, err := observer.NewLuenberger(sys, observer.DefaultGain())
		Expect(err).NotTo(HaveOccurred())
		s, err := sim.New(sys, obs, sim.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())

		res, err = s.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("ErrorSeries", func() {
		It("should start at the initial estimate offset and decay", func() {
			errs := analysis.ErrorSeries(res)
			Expect(errs).To(HaveLen(251))
			Expect(errs[0]).To(BeNumerically("~", 1.0, 1e-12))
			Expect(errs[250]).To(BeNumerically("<", 0.05))
		})
	})

	Describe("SettlingStep", func() {
		It("should find a settling step inside the run for the stock gain", func() {
			errs := analysis.ErrorSeries(res)
			step := analysis.SettlingStep(errs, 0.05)
			Expect(step).To(BeNumerically(">", 0))
			Expect(step).To(BeNumerically("<", 251))
		})

		It("should reset when the error climbs back above the threshold", func() {
			errs := []float64{1.0, 0.5, 0.04, 0.06, 0.03, 0.02}
			Expect(analysis.SettlingStep(errs, 0.05)).To(Equal(4))
		})

		It("should report -1 when the error never settles", func() {
			Expect(analysis.SettlingStep([]float64{1.0, 0.9, 0.8}, 0.5)).To(Equal(-1))
		})

		It("should report -1 for degenerate input", func() {
			Expect(analysis.SettlingStep(nil, 0.05)).To(Equal(-1))
			Expect(analysis.SettlingStep([]float64{1.0, 0.1}, 0)).To(Equal(-1))
		})
	})

	Describe("DominantFrequency", func() {
		It("should recover the oscillator frequency from the position trace", func() {
			freq := analysis.DominantFrequency(res.Component(0), 0.1)
			Expect(freq).To(BeNumerically("~", 1/(2*math.Pi), 0.02))
		})

		It("should return zero for degenerate input", func() {
			Expect(analysis.DominantFrequency(nil, 0.1)).To(Equal(0.0))
			Expect(analysis.DominantFrequency([]float64{1, 2, 3, 4}, 0)).To(Equal(0.0))
		})
	})
})
