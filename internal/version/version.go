package version

// Version is the handoff release. Release builds override it with
// -ldflags "-X github.com/odyssey/handoff/internal/version.Version=vX.Y.Z".
var Version = "v0.1.0"
