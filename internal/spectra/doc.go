// Package spectra computes frequency-domain diagnostics of planetary
// orbits from simulation tables: the equinoctial vectors of each planet,
// their magnitude spectra and dominant periods, orbital periods and the
// mutual inclination of neighbouring planets.
//
// Angles in the input tables are radians. Reported inclinations are degrees.
package spectra
