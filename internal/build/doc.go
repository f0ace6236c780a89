// Package build drives a site build through its stages: discover, read,
// validate links, build navigation and render for every docs version, then
// copy assets, process images, write the search index and the index redirect
// for the current docs.
//
// Stages run sequentially through a runner that times them on a
// metrics.Recorder and stops at the first fatal error or cancellation.
// Broken links, broken images and missing versioned sidebars are advisory and
// land in the Report.
package build
