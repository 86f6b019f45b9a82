package models

type AdRequest struct {
	ProductName string `json:"product_name" binding:"required"`
	Description string `json:"description" binding:"required"`
	Audience    string `json:"audience" binding:"required"`
	Tone        string `json:"tone" binding:"required"`
	Platform    string `json:"platform" binding:"required"`
	ImageSize   string `json:"image_size"`
}

type AdResult struct {
	Text     string `json:"text"`
	ImageURL string `json:"image_url"`
}
