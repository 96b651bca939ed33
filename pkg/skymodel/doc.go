// Package skymodel loads and evaluates sky catalogs: ordered lists of
// sources, each with a direction and a power-law Stokes spectrum.
//
// Catalogs are TOML files:
//
//	[[sources]]
//	name = "Cyg A"
//	ra   = "19h59m28.35663s"
//	dec  = "+40d44m02.0970s"
//	flux = [49545.0, 0.0, 0.0, 0.0]   # Stokes I, Q, U, V in Jy
//	freq = 1.0e6                       # reference frequency in Hz
//	index = [-0.7]                     # log10 power-law coefficients
//
// Multi-component sources list their constituents instead:
//
//	[[sources]]
//	name = "Cas A"
//	  [[sources.components]]
//	  name = "hotspot"
//	  ra = ...
//
// The predicted visibilities of a multi-component source are the sum of
// predicting each component separately.
package skymodel
