// The config package encapsulates configuration for both scatterfs
// daemons (namingd, storaged).
//
// Both daemons are expected to store runtime information within a
// dedicated base directory. When loading the configuration, the first
// and only argument is the path to the base directory rather than the
// path to the configuration file. The designated directory is expected
// to contain a file called 'config' holding one "key value" pair per
// line, corresponding to the C struct of this package.
package config
