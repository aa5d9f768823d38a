package analysis_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/obslab/internal/analysis"
	"github.com/san-kum/obslab/internal/lti"
	"github.com/san-kum/obslab/internal/observer"
)

var _ = Describe("AnalyzeObserver", func() {
	var (
		sys *lti.System
		obs *observer.Luenberger
	)

	BeforeEach(func() {
		var err error
		sys, err = lti.NewSpringMass(1.0, 1.0, 0.0)
		Expect(err).NotTo(HaveOccurred())
		obs, err = observer.NewLuenberger(sys, observer.DefaultGain())
		Expect(err).NotTo(HaveOccurred())
	})

	It("should report a contracting discrete error map for the stock gain", func() {
		report, err := analysis.AnalyzeObserver(sys, obs, 0.1)
		Expect(err).NotTo(HaveOccurred())

		Expect(report.Stable).To(BeTrue())
		// det(Phi) = 1 for the undamped model and det(I - K*C*dt) = 0.95,
		// so the complex pole pair sits at radius sqrt(0.95).
		Expect(report.SpectralRadius).To(BeNumerically("~", math.Sqrt(0.95), 1e-9))
		Expect(report.DiscretePoles).To(HaveLen(2))
	})

	It("should place the continuous poles in the left half plane", func() {
		report, err := analysis.AnalyzeObserver(sys, obs, 0.1)
		Expect(err).NotTo(HaveOccurred())

		Expect(report.ContinuousPoles).To(HaveLen(2))
		for _, p := range report.ContinuousPoles {
			Expect(real(p)).To(BeNumerically("<", 0))
		}
	})

	It("should report the oscillator's natural frequency", func() {
		report, err := analysis.AnalyzeObserver(sys, obs, 0.1)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.NaturalFreq).To(BeNumerically("~", 1/(2*math.Pi), 1e-9))
	})

	It("should flag a gain that destabilizes the discrete recursion", func() {
		bad, err := observer.NewLuenberger(sys, mat.NewDense(2, 1, []float64{-1.0, 0}))
		Expect(err).NotTo(HaveOccurred())

		report, err := analysis.AnalyzeObserver(sys, bad, 0.1)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Stable).To(BeFalse())
		Expect(report.SpectralRadius).To(BeNumerically(">", 1.0))
	})

	It("should reject a nil system", func() {
		_, err := analysis.AnalyzeObserver(nil, obs, 0.1)
		Expect(err).To(MatchError(lti.ErrInvalidConfig))
	})
})

var _ = Describe("Observable", func() {
	It("should confirm a position measurement sees both states", func() {
		sys, err := lti.NewSpringMass(1.0, 1.0, 0.0)
		Expect(err).NotTo(HaveOccurred())
		Expect(analysis.Observable(sys)).To(BeTrue())
	})

	It("should reject a model whose output reads nothing", func() {
		sys, err := lti.NewSystem(
			mat.NewDense(2, 2, []float64{0, 1, -1, 0}),
			mat.NewDense(2, 1, []float64{0, 1}),
			mat.NewDense(1, 2, []float64{0, 0}),
			mat.NewDense(1, 1, []float64{0}),
		)
		Expect(err).NotTo(HaveOccurred())

		ok, err := analysis.Observable(sys)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})
})
