// Package pipeline drives habari's broadcast cycles.
//
// One Orchestrator owns the loop: fetch news items, then for each item in
// fetch order translate, synthesize, download the image and render a segment,
// pausing for the configured cooldown after every rendered segment. Rendered
// segments go into an in-memory manifest keyed by index which is written to the
// concat file and handed to the publisher. A cycle that renders nothing skips
// publishing and waits for the empty-cycle back-off before fetching again.
//
// Failures are contained at three levels. A failing source is skipped by the
// feed fetcher, a failing item is dropped from the manifest, and a failing
// push ends the cycle. Only configuration errors such as a missing stream key
// stop the loop. Cleanup of the work directory always runs after the publisher
// has returned.
package pipeline
