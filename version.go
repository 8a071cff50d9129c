package boto

// Version is set at build time with -ldflags "-X github.com/aretw0/boto.Version=...".
var Version = "dev"
