package web

type FrontendData struct {
	Width      int   `json:"width"`
	RefreshMs  int64 `json:"refreshMs"`
	ZoomLevels []int `json:"zoomLevels"`
}
