package room

import (
	"context"
)

// fetchVideo looks up video metadata. Lookup failures only cost the room its
// title and thumbnail.
func (s service) fetchVideo(ctx context.Context, videoId string) Video {
	video := Video{Id: videoId}
	if s.videoData == nil {
		return video
	}

	data, err := s.videoData.Get(ctx, videoId)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to get video data", "video_id", videoId, "error", err)
		return video
	}

	video.Title = data.Title
	video.Author = data.AuthorName
	video.ThumbnailUrl = data.ThumbnailUrl

	return video
}
