/*
Package mocks will have all the mocks of the library, we'll try to use mocking using blackbox
testing and integration tests whenever is possible.
*/
package mocks

// diagnostics mocks.
//go:generate mockery -output ./ -dir ../../diagnostics -name Reporter

// pool mocks.
//go:generate mockery -output ./pool -dir ../../pool -name Provider
//go:generate mockery -output ./pool -dir ../../pool -name Pool
