// Package instagram holds everything igfetch knows about Instagram itself:
// recognizing post URLs, the user-agent pool, request header sets, the JSON
// and ld+json payload shapes, and a small HTTP client with per-call
// deadlines.
//
// Payloads are decoded into shape-independent values:
//
//	payload, err := client.FetchPayload(ctx, url, instagram.APIHeaders(ua, base, code), 30*time.Second)
//	if err == nil && payload.Kind != instagram.PayloadUnrecognized && payload.Media.HasVideo() {
//	    stream, err := client.OpenStream(ctx, payload.Media.VideoURL, headers, time.Minute)
//	    ...
//	}
package instagram
