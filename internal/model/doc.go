// Package model defines the core data structures used throughout
// music-manager.
//
// # References
//
// A SourceRef identifies an entity in the source catalog (the one that only
// exposes metadata). It is parsed from a link:
//
//	ref, err := model.ParseSourceRef("https://open.spotify.com/album/4aawyAB9vmqN3uQ7FjRGTy?si=x")
//	// ref.Kind == model.KindAlbum, ref.ID == "4aawyAB9vmqN3uQ7FjRGTy"
//
// A TargetRef identifies the matching entity in the target catalog (the one
// with a downloadable representation). Target references are only produced by
// the resolver; the identifiers of the two catalogs are not interchangeable.
//
// # Jobs
//
// DownloadJob is what the download orchestrator consumes:
//
//	job := model.DownloadJob{
//	    URL:       "https://www.deezer.com/track/3135556",
//	    Kind:      model.KindTrack,
//	    Format:    model.FormatLossless,
//	    Subfolder: "Road Trip",
//	}
//
// Subfolder is either a playlist name or (for albums) an artist name, never
// both.
package model
