// sim/model.go
package sim

// CompartmentModel holds the rate equations of the SEIR system.
//
//	dS = -beta(x)*S*I/N
//	dE =  beta(x)*S*I/N - sigma*E
//	dI =  sigma*E - gamma*I
//	dR =  gamma*I
//
// The derivatives sum to zero, so total population is conserved in continuous
// time. Parameters are not validated here; Config.Derive does that.
type CompartmentModel struct {
	N      float64
	Policy TransmissionPolicy
	Sigma  float64
	Gamma  float64
}

// Derivative returns (dS, dE, dI, dR) at simulation day x.
func (m CompartmentModel) Derivative(x float64, y EpidemicState) EpidemicState {
	infections := m.Policy.Rate(x) * y.S * y.I / m.N
	progressed := m.Sigma * y.E
	recovered := m.Gamma * y.I
	return EpidemicState{
		S: -infections,
		E: infections - progressed,
		I: progressed - recovered,
		R: recovered,
	}
}

func (m CompartmentModel) derivative(x float64, y [4]float64) [4]float64 {
	return m.Derivative(x, stateFromVector(y)).vector()
}
