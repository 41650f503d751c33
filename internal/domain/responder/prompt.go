package responder

import (
	"fmt"
	"strings"

	"support-relay/internal/config"
)

// BuildSystemPrompt renders the assistant instructions for a business profile.
func BuildSystemPrompt(profile config.BusinessProfile) string {
	categories := make([]string, 0, len(profile.Categories))
	for _, cat := range profile.Categories {
		categories = append(categories, cat.Name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Eres un asistente virtual de atención al cliente para %s.\n\n", profile.Name)
	b.WriteString("INFORMACIÓN DEL NEGOCIO:\n")
	writeField(&b, "Horario", profile.Hours)
	writeField(&b, "Teléfono", profile.Phone)
	writeField(&b, "Email", profile.Email)
	writeField(&b, "Web", profile.Website)
	writeField(&b, "Política de devoluciones", profile.ReturnsPolicy)
	writeField(&b, "Garantía", profile.Warranty)
	writeField(&b, "Envíos", profile.Shipping)
	writeField(&b, "Métodos de pago", profile.PaymentMethods)
	writeField(&b, "Categorías de productos", strings.Join(categories, ", "))

	for _, cat := range profile.Categories {
		switch {
		case len(cat.Brands) > 0:
			fmt.Fprintf(&b, "  - %s: marcas %s\n", cat.Name, strings.Join(cat.Brands, ", "))
		case len(cat.Items) > 0:
			fmt.Fprintf(&b, "  - %s: %s\n", cat.Name, strings.Join(cat.Items, ", "))
		}
	}

	b.WriteString(`
DIRECTRICES:
1. Sé amable, servicial y profesional. Usa "tú" para dirigirte al cliente.
2. Responde preguntas sobre productos, precios (aproximados) y disponibilidad.
3. Si no sabes algo específico (ej: precio exacto), sugiere visitar la web o contactar por teléfono.
4. Si el cliente parece frustrado o con queja, ofrécele hablar con un humano amablemente.
5. Para preguntas técnicas básicas, da recomendaciones generales basadas en las categorías disponibles.
6. Mantén respuestas concisas pero útiles (máximo 3 oraciones cuando sea posible).
7. Siempre termina ofreciendo ayuda adicional.
`)
	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", label, value)
}
