package validation

import "math"

// coastPoints is a coarse sample of the Japanese coastline, dense enough for
// the coastal-vs-inland decision at the configured distance threshold. The
// regional rule only needs "within ~15km of any coast", not a shoreline model.
var coastPoints = [][2]float64{
	{45.52, 141.94}, // Wakkanai
	{44.02, 144.27}, // Abashiri
	{42.98, 144.38}, // Kushiro
	{41.77, 140.73}, // Hakodate
	{43.20, 140.99}, // Otaru
	{40.82, 140.75}, // Aomori
	{39.72, 140.10}, // Akita
	{38.92, 139.84}, // Sakata
	{37.90, 139.02}, // Niigata
	{36.79, 137.06}, // Toyama
	{36.61, 136.61}, // Kanazawa
	{35.65, 136.06}, // Tsuruga
	{35.54, 134.82}, // Toyooka
	{35.44, 133.33}, // Sakaiminato
	{34.90, 132.08}, // Hamada
	{33.95, 130.94}, // Shimonoseki
	{40.51, 141.49}, // Hachinohe
	{39.64, 141.95}, // Miyako
	{38.43, 141.30}, // Ishinomaki
	{38.26, 140.99}, // Sendai coast
	{36.94, 140.90}, // Iwaki
	{36.35, 140.58}, // Hitachi
	{35.73, 140.83}, // Choshi
	{35.60, 140.12}, // Chiba
	{35.44, 139.64}, // Yokohama
	{35.10, 139.08}, // Atami
	{34.97, 138.39}, // Shizuoka
	{34.70, 137.73}, // Hamamatsu
	{35.03, 136.85}, // Nagoya port
	{34.49, 136.71}, // Ise
	{33.73, 135.99}, // Shingu
	{33.45, 135.77}, // Kushimoto
	{34.23, 135.17}, // Wakayama
	{34.65, 135.43}, // Osaka bay
	{34.69, 135.19}, // Kobe
	{34.34, 134.05}, // Takamatsu
	{33.84, 134.50}, // Tokushima
	{33.56, 133.53}, // Kochi
	{32.79, 132.96}, // Tosashimizu
	{33.84, 132.77}, // Matsuyama
	{34.40, 133.46}, // Fukuyama
	{34.18, 132.22}, // Iwakuni
	{33.59, 130.40}, // Fukuoka
	{33.16, 129.72}, // Sasebo
	{32.74, 129.87}, // Nagasaki
	{32.21, 130.02}, // Amakusa
	{31.59, 130.56}, // Kagoshima
	{31.56, 131.40}, // Nichinan
	{31.91, 131.47}, // Miyazaki
	{33.23, 131.61}, // Oita
	{33.95, 130.94}, // Kitakyushu
	{28.37, 129.49}, // Amami
	{26.21, 127.68}, // Naha
	{24.34, 124.16}, // Ishigaki
	{24.80, 125.28}, // Miyakojima
}

const earthRadiusKM = 6371.0

// coastDistanceKM returns the distance from the point to the nearest sampled
// coast point.
func coastDistanceKM(lat, lon float64) float64 {
	best := math.MaxFloat64
	for _, p := range coastPoints {
		if d := haversineKM(lat, lon, p[0], p[1]); d < best {
			best = d
		}
	}
	return best
}

func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const rad = math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(a))
}
