package content

import "github.com/vyrodovalexey/sitecms/internal/model"

// DefaultServices returns the services shown before any edit.
func DefaultServices() []model.Service {
	return []model.Service{
		{
			ID: "service-1", Title: "Graphic Design", Category: "Branding",
			ImageSrc:    "https://images.unsplash.com/photo-1626785774573-4b799315345d?q=80&w=2071&auto=format&fit=crop",
			Description: "Logos, brochures, business cards, posters, and all your marketing material needs. We create visually stunning graphics that capture attention.",
		},
		{
			ID: "service-7", Title: "3D LOGO Design", Category: "Branding",
			ImageSrc:    "https://images.unsplash.com/photo-1611162617213-6d22e4f13374?q=80&w=1974&auto=format&fit=crop",
			Description: "Bring your brand to life with stunning 3D logos that stand out. We create dynamic and modern logos with depth and dimension.",
		},
		{
			ID: "service-2", Title: "Branding Strategy", Category: "Branding",
			ImageSrc:    "https://images.unsplash.com/photo-1557426272-fc759fdf7a8d?q=80&w=2070&auto=format&fit=crop",
			Description: "Comprehensive brand identity development, including strategy, guidelines, and visual assets to build a strong and memorable brand presence.",
		},
		{
			ID: "service-3", Title: "Printing Services", Category: "Print",
			ImageSrc:    "https://images.unsplash.com/photo-1506485338023-6ce5f38de033?q=80&w=2070&auto=format&fit=crop",
			Description: "High-quality printing for business cards, flyers, banners, and other promotional materials. We ensure your designs look great on paper.",
		},
		{
			ID: "service-4", Title: "Interior Decoration", Category: "Environment",
			ImageSrc:    "https://images.unsplash.com/photo-1533090481720-856c6e3c1fdc?q=80&w=1974&auto=format&fit=crop",
			Description: "Transforming residential and commercial spaces with creative and functional interior design solutions that reflect your style.",
		},
		{
			ID: "service-5", Title: "Fashion Design", Category: "Fashion",
			ImageSrc:    "https://images.unsplash.com/photo-1490481651871-ab68de25d43d?q=80&w=2070&auto=format&fit=crop",
			Description: "Innovative fashion design services, from concept development and sketching to pattern making and collection creation.",
		},
		{
			ID: "service-6", Title: "Web Design", Category: "Digital",
			ImageSrc:    "https://images.unsplash.com/photo-1542744173-8e7e53415bb0?q=80&w=2070&auto=format&fit=crop",
			Description: "User-friendly, responsive, and aesthetically pleasing website design and development. We build engaging digital experiences.",
		},
	}
}

// DefaultFeaturedWork returns the featured projects shown before any edit.
func DefaultFeaturedWork() []model.FeaturedWork {
	return []model.FeaturedWork{
		{
			ID:          "featured-1",
			Title:       "Corporate Branding Overhaul",
			ImageSrc:    "https://images.unsplash.com/photo-1556740738-b6a63e27c4df?q=80&w=2070&auto=format&fit=crop",
			Description: "A complete redesign of a major corporation's brand identity, including logo, color palette, and marketing materials.",
		},
		{
			ID:          "featured-2",
			Title:       "E-Commerce Web Platform",
			ImageSrc:    "https://images.unsplash.com/photo-1460925895917-afdab827c52f?q=80&w=2015&auto=format&fit=crop",
			Description: "Developed a fully responsive and user-friendly e-commerce website that resulted in a 40% increase in online sales.",
		},
		{
			ID:          "featured-3",
			Title:       "Boutique Hotel Interior Design",
			ImageSrc:    "https://images.unsplash.com/photo-1566073771259-6a8506099945?q=80&w=2070&auto=format&fit=crop",
			Description: "Conceptualized and executed the interior design for a luxury boutique hotel, creating a unique and memorable guest experience.",
		},
	}
}

// DefaultGallery returns the gallery shown before any edit.
func DefaultGallery() []model.GalleryItem {
	return []model.GalleryItem{
		{
			ID: "gallery-default-1", Type: model.MediaTypeImage, Title: "Modern Workspace Design", FileType: "image/jpeg",
			Src: "https://images.unsplash.com/photo-1512295767273-b684ac7658fa?q=80&w=1974&auto=format&fit=crop",
		},
		{
			ID: "gallery-default-2", Type: model.MediaTypeImage, Title: "Creative Tools & Branding", FileType: "image/jpeg",
			Src: "https://images.unsplash.com/photo-1516116216624-53e6973bea12?q=80&w=2070&auto=format&fit=crop",
		},
		{
			ID: "gallery-default-3", Type: model.MediaTypeVideo, Title: "Design Process Reel", FileType: "video/mp4",
			Src: "https://storage.googleapis.com/gtv-videos-bucket/sample/ForBiggerFun.mp4",
		},
		{
			ID: "gallery-default-4", Type: model.MediaTypeImage, Title: "Digital Branding Mockup", FileType: "image/jpeg",
			Src: "https://images.unsplash.com/photo-1626785774573-4b799315345d?q=80&w=2071&auto=format&fit=crop",
		},
	}
}

// DefaultSiteSettings returns the contact and social settings shown before
// any edit.
func DefaultSiteSettings() model.SiteSettings {
	return model.SiteSettings{
		"siteTitle":             {Value: "Logan Design"},
		"contactEmail":          {Value: "info@logandesign.com"},
		"contactEmailSecondary": {Value: "support@logandesign.com"},
		"primaryPhone":          {Value: "+1 (555) 123-4567", Suffix: "Mon-Fri, 9am-5pm"},
		"facebookUrl":           {Value: "https://facebook.com"},
		"instagramUrl":          {Value: "https://instagram.com"},
		"linkedInUrl":           {Value: "https://linkedin.com"},
		"twitterUrl":            {Value: "https://twitter.com"},
	}
}

// DefaultCEOInfo returns the CEO bio shown before any edit.
func DefaultCEOInfo() model.CEOInfo {
	return model.CEOInfo{
		Name:     "Logan Thomas Jr.",
		Message:  "Leading with a vision for creativity and excellence, our team is dedicated to bringing your ideas to life with unparalleled design solutions.",
		ImageSrc: "https://images.unsplash.com/photo-1560250097-0b93528c311a?q=80&w=1974&auto=format&fit=crop",
	}
}
