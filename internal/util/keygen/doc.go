// Package keygen generates SSH key pairs for providers that only accept
// uploaded public keys.
//
// Private keys are returned in PEM form, public keys as a single
// authorized_keys line without the trailing newline.
package keygen
