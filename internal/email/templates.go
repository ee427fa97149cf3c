package email

import "fmt"

func (s *Service) generateWelcomeHTML(name, emailAddr string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Welcome to Fit Check</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, Cantarell, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
            background-color: #f8f9fa;
        }
        .container {
            background-color: white;
            padding: 40px;
            border-radius: 12px;
            box-shadow: 0 2px 10px rgba(0, 0, 0, 0.1);
        }
        .header {
            text-align: center;
            margin-bottom: 30px;
        }
        .logo {
            font-size: 28px;
            font-weight: bold;
            color: #5b3e8c;
            margin-bottom: 10px;
        }
        .welcome-message {
            font-size: 24px;
            color: #5b3e8c;
            margin-bottom: 20px;
        }
        .content {
            font-size: 16px;
            margin-bottom: 30px;
        }
        .footer {
            margin-top: 40px;
            padding-top: 20px;
            border-top: 1px solid #e9ecef;
            font-size: 14px;
            color: #6c757d;
            text-align: center;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <div class="logo">Fit Check</div>
            <div class="welcome-message">Welcome %s!</div>
        </div>

        <div class="content">
            <p>Thanks for joining Fit Check, your virtual wardrobe and AI styling studio!</p>

            <p>With Fit Check, you can:</p>
            <ul>
                <li>👕 Catalog your wardrobe with photos, colors, and tags</li>
                <li>🪞 Try outfits on your own AI model photo</li>
                <li>📸 Generate studio-quality poses and close-ups</li>
                <li>✨ Write ready-to-post captions for your looks</li>
            </ul>
        </div>

        <div class="footer">
            <p>Happy styling!</p>
            <p>The Fit Check Team</p>
            <p style="margin-top: 20px; font-size: 12px;">
                This email was sent to %s. If you have any questions, feel free to reach out to us.
            </p>
        </div>
    </div>
</body>
</html>`, name, emailAddr)
}

func (s *Service) generateWelcomeText(name, emailAddr string) string {
	return fmt.Sprintf(`Welcome %s!

Thanks for joining Fit Check, your virtual wardrobe and AI styling studio!

With Fit Check, you can:
- Catalog your wardrobe with photos, colors, and tags
- Try outfits on your own AI model photo
- Generate studio-quality poses and close-ups
- Write ready-to-post captions for your looks

Happy styling!
The Fit Check Team

---
This email was sent to %s. If you have any questions, feel free to reach out to us.`, name, emailAddr)
}

func (s *Service) generatePasswordChangedHTML(name, emailAddr string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Password Changed</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, Cantarell, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
            background-color: #f8f9fa;
        }
        .container {
            background-color: white;
            padding: 40px;
            border-radius: 12px;
            box-shadow: 0 2px 10px rgba(0, 0, 0, 0.1);
        }
        .header {
            text-align: center;
            margin-bottom: 30px;
        }
        .logo {
            font-size: 28px;
            font-weight: bold;
            color: #5b3e8c;
            margin-bottom: 10px;
        }
        .footer {
            margin-top: 40px;
            padding-top: 20px;
            border-top: 1px solid #e9ecef;
            font-size: 14px;
            color: #6c757d;
            text-align: center;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <div class="logo">Fit Check</div>
        </div>

        <div class="content">
            <p>Hello %s,</p>
            <p>The password for your Fit Check account was just changed.</p>
            <p>If this was you, no further action is needed. If you did not make this change, please reset your password immediately and contact support.</p>
        </div>

        <div class="footer">
            <p>The Fit Check Team</p>
            <p style="margin-top: 20px; font-size: 12px;">
                This email was sent to %s.
            </p>
        </div>
    </div>
</body>
</html>`, name, emailAddr)
}

func (s *Service) generatePasswordChangedText(name, emailAddr string) string {
	return fmt.Sprintf(`Hello %s,

The password for your Fit Check account was just changed.

If this was you, no further action is needed. If you did not make this change, please reset your password immediately and contact support.

The Fit Check Team

---
This email was sent to %s.`, name, emailAddr)
}
