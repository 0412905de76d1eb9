// Package hops samples probability distributions supported on convex
// polytopes {x : A·x < b} with Markov chain Monte Carlo.
//
// A chain is a stack of small layers around a proposal mechanism (see the
// proposal subpackage). Each layer implements Proposer or Drawer, holds the
// stage below it, and adds one concern:
//
//	ModelLayer             couples a target density to a uniform proposer
//	MetropolisHastings     accepts or rejects candidates
//	*Recorder              stores states, acceptance rates, timestamps, likelihoods
//	TransformationLayer    reports states of a rounded space in original coordinates
//
// Optional capabilities such as AcceptanceProber or StepSizer are detected
// once when a layer is built, and can be found through any stack with As.
// Log acceptance probabilities of the layers add up, and errors from any
// layer are returned unchanged since continuing after a geometry or
// factorization failure would corrupt the stationary distribution.
//
// The tune subpackage calibrates step sizes with Gaussian process Thompson
// sampling.
package hops
