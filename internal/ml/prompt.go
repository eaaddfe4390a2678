package ml

// RecognitionPrompt is the fixed instruction sent with every image.
const RecognitionPrompt = `Identify the food in this image and estimate its nutritional content.

Respond with strict JSON only, no prose and no markdown, using exactly these keys:
{
  "food_name": "string",
  "description": "string",
  "estimated_weight": number (grams of food visible),
  "nutrition_per_100g": {
    "protein": number (g),
    "carbohydrates": number (g),
    "fat": number (g),
    "calories": number (kcal),
    "fiber": number (g),
    "sodium": number (mg),
    "sugar": number (g)
  },
  "vitamins": ["string"]
}

If there is no food in the image, respond with {"error": "<short explanation>"} instead.`
