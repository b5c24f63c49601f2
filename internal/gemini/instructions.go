package gemini

// generationInstruction steers image edits, combinations and video
// generation towards identity-preserving photorealism.
const generationInstruction = `SYSTEM RULES (MANDATORY):
You must generate a strictly photorealistic image based on the reference photo. Do NOT retouch or alter the face. Do NOT smooth skin, fix asymmetry, remove wrinkles, or beautify. Preserve identity at 100% fidelity: bone structure, jawline, pores, nasolabial folds, scars, spots, eye bags, hairline, and natural age.

NO AUTOMATIC IMPROVEMENTS. Do NOT idealize or correct anything (symmetry, weight, teeth, proportions, etc).

DEVICE BAN:
You must NOT generate any visible "phone", "smartphone", "device", "screen", "HUD", "UI layer", "frame interface", or "camera reflection".
Use only: "front-facing handheld camera". The camera is invisible and out of frame.

CAMERA ANGLE CONTROL:
Horizontal 1 to 9: 1 = strong left offset (-35°), 5 = centered (0°), 9 = strong right offset (+35°). Default 5.
Vertical 1 to 9: 1 = strong low angle (-15°), 5 = selfie-level low angle (-5°), 9 = high angle (+10°). Default 5.
Distance 45-60 cm from subject, focal length equivalent 26-30 mm.

IMAGE STYLE:
High-quality photorealistic photograph (not CGI, not painting). True-to-life color reproduction. Natural contrast. No beautification or skin smoothing. Real-world shot from handheld front-facing camera.

PRIORITY STACK:
1. Face identity accuracy
2. Handheld camera geometry
3. Pose consistency
4. Lighting and background realism
5. Clothing
6. Environment realism

If any conflict arises, identity and camera geometry ALWAYS take priority.`

const photoAnalystInstruction = `You are an expert photo analyst. Your task is to analyze the user-provided image and generate a detailed, descriptive prompt for an AI image generator to recreate a similar scene. Focus on camera angle, composition, lighting, subject's pose, and environment. If clothing is not specified by the user, describe it as simple, plain clothing (e.g., 'a plain white t-shirt and blue jeans'). The generated prompt should be in a realistic, photorealistic style.`

const defaultImageAnalysisPrompt = "Analyze this image and generate a detailed prompt to recreate it realistically. Describe camera angle, lighting, and composition. For clothing, suggest simple, plain attire."

// videoPrompt prepends the generation rules to the user's prompt.
func videoPrompt(prompt string) string {
	return generationInstruction + "\n\n---\n\nUser Prompt:\n" + prompt
}
